// tn3270probe is a thin example client in the spirit of go3270's
// example1-5: it connects to a host, types a string, presses Enter, and
// prints the resulting screen. It is not a scripting front-end like
// s3270 -- see SPEC_FULL.md section 1 for that explicit non-goal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dtg01100/pure3270-sub003"
	"github.com/dtg01100/pure3270-sub003/config"
)

func main() {
	addr := flag.String("addr", "localhost:23", "host:port to connect to")
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	input := flag.String("input", "", "text to type before pressing Enter")
	trace := flag.Bool("trace", false, "enable debug-level logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	sess := tn3270.NewSession(cfg, nil)
	sess.Trace(*trace)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sess.Connect(ctx, *addr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sess.Close()

	if *input != "" {
		if err := sess.SendAction(tn3270.InsertText(*input)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if err := sess.SendAction(tn3270.Enter()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	screen, err := sess.ReadScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(strings.Join(screen, "\n"))
	fmt.Fprintln(os.Stderr, "negotiation state:", sess.NegotiationState())
}
