package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/app"
	"github.com/yeisme/docvault/pkg/configs"
	mq "github.com/yeisme/docvault/pkg/internal/storage/mq"
	"github.com/yeisme/docvault/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "inspect document event topics",
		Aliases: []string{"events"},
	}

	mqTypesCmd = &cobra.Command{
		Use:     "types",
		Short:   "list the registered mq backends",
		Aliases: []string{"ls"},
		Run: func(cmd *cobra.Command, args []string) {
			types := mq.GetRegisteredMQTypes()
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), string(t))
			}
		},
	}

	mqTopicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "list event topics and whether they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOPIC\tPUBLISHED")

			for _, ts := range queue.Topics(configs.GetConfig().Events) {
				fmt.Fprintf(w, "%s\t%t\n", ts.Topic, ts.Enabled)
			}

			return w.Flush()
		},
	}

	mqTailCmd = &cobra.Command{
		Use:         "tail [topic]",
		Short:       "print events of a topic until interrupted",
		Args:        cobra.MaximumNArgs(1),
		Annotations: selfBootstrap(),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := queue.TopicDocumentSaved
			if len(args) == 1 {
				topic = args[0]
			}

			if !knownTopic(topic) {
				return fmt.Errorf("unknown topic %q", topic)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, mgr, _, err := app.Bootstrap(ctx, configPath)
			if err != nil {
				return err
			}
			defer mgr.Close()

			msgs, err := mgr.GetMQClient().Subscribe(ctx, topic)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", topic, err)
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-msgs:
					if !ok {
						return nil
					}

					printEvent(cmd, msg)
					msg.Ack()
				}
			}
		},
	}
)

func knownTopic(topic string) bool {
	for _, ts := range queue.Topics(configs.EventsConfig{}) {
		if ts.Topic == topic {
			return true
		}
	}

	return false
}

func printEvent(cmd *cobra.Command, msg *message.Message) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", msg.UUID, msg.Payload)

	if debug {
		for k, v := range msg.Metadata {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s=%s\n", k, v)
		}
	}
}

// registerMQCommands 注册事件主题相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqTypesCmd, mqTopicsCmd, mqTailCmd)
}
