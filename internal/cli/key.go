package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/webpersona/internal/config"
)

// Execute implements the go-flags Commander interface for KeyCommand.
func (c *KeyCommand) Execute(args []string) error {
	n := 0
	for _, set := range []bool{c.Set != "", c.Clear, c.Show} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("key requires exactly one of --set, --clear or --show")
	}

	sess, done, err := useSession(c.globals, c.sess)
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()

	switch {
	case c.Set != "":
		if err := sess.store.SetAPIKey(ctx, c.Set); err != nil {
			return err
		}
		return c.print("stored", maskKey(strings.TrimSpace(c.Set)), "API key stored.")

	case c.Clear:
		if err := sess.store.ClearAPIKey(ctx); err != nil {
			return err
		}
		return c.print("cleared", "", "API key cleared.")

	default:
		stored, err := storedAPIKey(ctx, sess.store)
		if err != nil {
			return err
		}
		switch {
		case stored != "":
			return c.print("stored", maskKey(stored), "API key: "+maskKey(stored)+" (stored)")
		case config.EnvAPIKey() != "":
			return c.print("env", maskKey(config.EnvAPIKey()), "API key: "+maskKey(config.EnvAPIKey())+" (from "+config.APIKeyEnv+")")
		default:
			return c.print("none", "", "No API key configured.")
		}
	}
}

func (c *KeyCommand) print(state, masked, human string) error {
	if c.globals.JSON {
		out := map[string]string{"state": state}
		if masked != "" {
			out["key"] = masked
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	fmt.Println(human)
	return nil
}

// maskKey keeps a short prefix and the last four characters.
func maskKey(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:3] + "..." + k[len(k)-4:]
}
