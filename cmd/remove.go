package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/store"
	"github.com/kamusis/flowdex/internal/workflow"
)

var flagRemoveIndex bool

var removeCmd = &cobra.Command{
	Use:     "remove <filename>...",
	Aliases: []string{"rm"},
	Short:   "Delete stored workflows from the library",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&flagRemoveIndex, "index", false, "Rebuild the indexes after removing")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	printSection("Remove")

	var failed int
	names, err := lib.Store().List()
	if err != nil {
		return err
	}
	for _, name := range exactFilenames(names, args) {
		err := lib.Remove(name)
		switch {
		case err == nil:
			printOK(name, "removed")
		case errors.Is(err, store.ErrNotFound):
			printMiss(name, "not found")
			failed++
		default:
			printErr(name, err.Error())
			failed++
		}
	}

	if flagRemoveIndex {
		if err := rebuildAndReport(cmdContext(cmd), lib); err != nil {
			return err
		}
	} else {
		printInfo("", "run 'flowdex index' to refresh the indexes")
	}
	if failed > 0 {
		return fmt.Errorf("%d workflow(s) could not be removed", failed)
	}
	return nil
}

// exactFilenames maps each argument to a stored filename by exact name, name plus
// ".json" or workflow id. Unmatched arguments pass through so Remove reports them.
func exactFilenames(stored, args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		match := a
		for _, n := range stored {
			if n == a || n == a+".json" || workflow.ID(n) == a {
				match = n
				break
			}
		}
		out = append(out, match)
	}
	return out
}
