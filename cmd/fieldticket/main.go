package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/zeptools/fieldticket/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:], cli.Streams{}); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			cli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
