// ddb inspects DynamoDB tables described in ddb.yaml.
//
// # Installation
//
//	go install github.com/acksell/dynamap/dynamodb/cmd/ddb@latest
//
// # Commands
//
//	ddb get      Fetch one item by key
//	ddb query    Query a partition of a table or GSI
//	ddb explain  Print the request get or query would send, without sending it
//
// # Configuration
//
// ddb.yaml is searched for from the working directory upwards:
//
//	region: eu-west-1
//	endpoint: http://localhost:8000   # optional, e.g. DynamoDB Local
//	dataDir: ./.ddb                   # local store directory for -local
//	tables:
//	  - name: orders
//	    partitionKey: {name: pk, kind: S, format: "CUSTOMER#%s"}
//	    sortKey: {name: sk, kind: S, format: "ORDER#%s"}
//	    gsis:
//	      - name: byStatus
//	        partitionKey: {name: status, kind: S}
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
)

const version = "0.2.0"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, connect: connect}
	err := a.run(ctx, os.Args[1:])
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "ddb: %s\n", describeError(err))
		stop()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "get":
		return a.runGet(ctx, rest, false)
	case "query":
		return a.runQuery(ctx, rest, false)
	case "explain":
		if len(rest) == 0 {
			fmt.Fprintln(a.stderr, "usage: ddb explain <get|query> [flags]")
			return errUsage
		}
		switch rest[0] {
		case "get":
			return a.runGet(ctx, rest[1:], true)
		case "query":
			return a.runQuery(ctx, rest[1:], true)
		}
		return fmt.Errorf("cannot explain %q", rest[0])
	case "help", "-h", "--help":
		a.printUsage()
		return nil
	case "version", "--version":
		fmt.Fprintf(a.stdout, "ddb version %s\n", version)
		return nil
	default:
		fmt.Fprintf(a.stderr, "ddb: unknown command %q\n\n", cmd)
		a.printUsage()
		return errUsage
	}
}

func (a *app) printUsage() {
	fmt.Fprintln(a.stderr, `ddb - DynamoDB inspection tool

Usage:
  ddb <command> [flags]

Commands:
  get       Fetch one item by key
  query     Query a partition of a table or GSI
  explain   Print the assembled get or query request without sending it

Examples:
  ddb get -table orders -pk 42 -sk 2024-01
  ddb query -table orders -pk 42 -sk-from 2024-01 -sk-to 2024-06 -desc
  ddb query -table orders -pk 42 -filter '#s = :s' -name '#s=status' -value ':s=S:open'
  ddb query -table orders -index byStatus -pk open -all
  ddb explain query -table orders -pk 42 -sk-prefix ORDER#2024

Flags shared by all commands:
  -config   path to ddb.yaml (default: search upwards)
  -table    table name (optional when ddb.yaml has one table)
  -local    use the local badger store at dataDir instead of DynamoDB
  -v        debug logging

Run 'ddb <command> -h' for the flags of a command.`)
}
