package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/selfreport/app"
	"github.com/kilianp07/selfreport/config"
)

var (
	captureLevel string
	captureTags  []string
)

var captureCmd = &cobra.Command{
	Use:   "capture <message>",
	Short: "Send a test message through the reporting pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  captureMessage,
}

func init() {
	captureCmd.Flags().StringVarP(&captureLevel, "level", "l", "error", "event level (debug, info, warning, error, fatal)")
	captureCmd.Flags().StringSliceVarP(&captureTags, "tag", "t", nil, "tag as key=value, repeatable")
	rootCmd.AddCommand(captureCmd)
}

func captureMessage(cmd *cobra.Command, args []string) error {
	tags, err := parseTags(captureTags)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if !svc.Client.IsEnabled() {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "reporting disabled, event not sent")
		return err
	}
	id, err := svc.CaptureMessage(context.Background(), strings.Join(args, " "), captureLevel, tags)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if id == "" {
		return fmt.Errorf("event dropped")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
	return err
}

func parseTags(raw []string) (map[string]string, error) {
	tags := make(map[string]string, len(raw))
	for _, t := range raw {
		k, v, ok := strings.Cut(t, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q, want key=value", t)
		}
		tags[k] = v
	}
	return tags, nil
}
