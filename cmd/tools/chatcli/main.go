package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	server  string
	session string
	timeout time.Duration
	verbose bool
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "chatcli",
		Short: "Talk to the Rainit chat server from a terminal",
		Long: `chatcli sends messages to a running Rainit backend.

Available subcommands:
  send    - Send one message and print the reply
  reset   - Clear the conversation log
  session - Open an isolated session and print its id
  repl    - Chat interactively (/reset clears, /quit exits)`,
		SilenceUsage: true,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", envOr("CHATCLI_SERVER", "http://localhost:7071/api"), "Server base URL")
	rootCmd.PersistentFlags().StringVar(&opts.session, "session", "", "Session id (empty uses the shared default session)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print intent and fallback markers")

	sendCmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, strings.Join(args, " "))
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the conversation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReset(cmd, opts)
		},
	}

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Open an isolated session and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			id, err := newClient(opts.server, nil).newSession(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}

	rootCmd.AddCommand(sendCmd, resetCmd, sessionCmd, replCmd)
	return rootCmd
}

func runSend(cmd *cobra.Command, opts *options, message string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	reply, err := newClient(opts.server, nil).send(ctx, opts.session, message)
	if err != nil {
		return err
	}
	printReply(cmd.OutOrStdout(), opts, reply)
	return nil
}

func runReset(cmd *cobra.Command, opts *options) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	ack, err := newClient(opts.server, nil).reset(ctx, opts.session)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ack)
	return nil
}

func runREPL(cmd *cobra.Command, opts *options) error {
	c := newClient(opts.server, nil)
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/reset":
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			ack, err := c.reset(ctx, opts.session)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			} else {
				fmt.Fprintln(out, ack)
			}
		default:
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			reply, err := c.send(ctx, opts.session, line)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			} else {
				printReply(out, opts, reply)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func printReply(w io.Writer, opts *options, reply chatReply) {
	if !opts.verbose {
		fmt.Fprintln(w, reply.Text)
		return
	}
	marker := ""
	if reply.Fallback {
		marker = " fallback"
	}
	fmt.Fprintf(w, "[%s%s] %s\n", reply.Intent, marker, reply.Text)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
