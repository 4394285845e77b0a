// Command cachectl sends a single command to a running users cache server.
//
//	cachectl [-addr host:port] [-timeout 5s] test
//	cachectl save <id> <json>
//	cachectl get <id>
//	cachectl del <id>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"Users_Cache/internal/models"
	"Users_Cache/internal/rpc"
)

var errUsage = errors.New("usage: cachectl [-addr host:port] [-timeout 5s] test | save <id> <json> | get <id> | del <id>")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cachectl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", "localhost:5001", "server address")
	timeout := fs.Duration("timeout", 5*time.Second, "command timeout")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	pattern, payload, err := buildCommand(fs.Args())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := rpc.Dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Send(ctx, pattern, payload)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, string(result))
	return err
}

func buildCommand(args []string) (string, interface{}, error) {
	if len(args) == 0 {
		return "", nil, errUsage
	}

	switch args[0] {
	case "test":
		if len(args) != 1 {
			return "", nil, errUsage
		}
		return models.PatternTest, nil, nil
	case "save":
		if len(args) != 3 {
			return "", nil, errUsage
		}
		if !json.Valid([]byte(args[2])) {
			return "", nil, fmt.Errorf("value is not valid JSON: %s", args[2])
		}
		return models.PatternSaveCache, models.SaveCacheRequest{
			ID:   models.CacheKey(args[1]),
			Data: json.RawMessage(args[2]),
		}, nil
	case "get", "del":
		if len(args) != 2 {
			return "", nil, errUsage
		}
		pattern := models.PatternGetCache
		if args[0] == "del" {
			pattern = models.PatternDelCache
		}
		return pattern, models.KeyRequest{ID: models.CacheKey(args[1])}, nil
	default:
		return "", nil, errUsage
	}
}
