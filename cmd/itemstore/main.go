// Package main is the entry point for the itemstore CLI.
//
// itemstore reads and writes items in an S3 bucket (s3://bucket/prefix) or a
// local directory (file:///path) through the same set of commands.
//
//	itemstore put s3://my-bucket/data/v1 file.json ./file.json
//	itemstore ls s3://my-bucket/data/v1 --page-size 100
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mashiike/itemstore/cmd/itemstore/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
