package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	if !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL webpersona data.")
		fmt.Println("  - All analysis snapshots")
		fmt.Println("  - All engagement samples")
		fmt.Println("  - The stored API key and last insight")
		fmt.Println("  - The audit log")
		fmt.Println()
		fmt.Println("Your browser history itself is not touched.")
		fmt.Println("This action cannot be undone.")
		fmt.Println()

		ok, err := confirm(c.stdin, `Type "PURGE" to confirm: `, "PURGE")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	if err := sess.store.PurgeAll(context.Background()); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"purged":  true,
			"message": "all data deleted",
		})
	}

	fmt.Println("Purged all data. webpersona is empty.")
	return nil
}
