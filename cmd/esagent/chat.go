package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/effective-security/esagent/config"
	"github.com/effective-security/esagent/mediator"
	"github.com/effective-security/esagent/session"
	"github.com/effective-security/esagent/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	chatMessage    string
	chatID         string
	chatTranscript bool
	chatVerbose    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVar(&chatID, "chat-id", "", "Resume or name the chat")
	chatCmd.Flags().BoolVar(&chatTranscript, "transcript", false, "Print the full transcript as YAML on exit")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Print tool activity")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []session.Option{}
	if chatID != "" {
		opts = append(opts, session.WithChatID(chatID))
	}
	if chatVerbose {
		opts = append(opts, session.WithCallback(mediator.NewPrinterCallback(cmd.ErrOrStderr())))
	}
	if cfg.Store.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		defer client.Close()
		opts = append(opts, session.WithTranscriptStore(store.NewRedisStore(client, cfg.Store.Prefix)))
	}

	sess, err := session.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	if chatMessage != "" {
		answer, err := sess.Ask(ctx, chatMessage)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer)
		return printTranscript(out, sess)
	}

	fmt.Fprintf(out, "Connected, chat %s. Tools: %s\n", sess.ChatID(), strings.Join(sess.Tools(), ", "))
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[line] {
			break
		}
		answer, err := sess.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(out, "error: %s\n", err.Error())
			continue
		}
		fmt.Fprintln(out, answer)
	}
	return printTranscript(out, sess)
}

func printTranscript(out io.Writer, sess *session.Session) error {
	if !chatTranscript {
		return nil
	}
	data, err := yaml.Marshal(sess.Transcript())
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
