package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/history"
	"ble-autolock.klederson.com/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		purge bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past monitoring sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := history.Open(config.DefaultHistoryPath())
			if err != nil {
				return err
			}
			defer h.Close()

			if purge {
				if err := h.Purge(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("Session history cleared.")
				return nil
			}

			sessions, err := h.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions recorded yet.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(ui.StyleRule).
				Headers("STARTED", "DURATION", "DEVICE", "SAMPLES", "ABSENT", "LOCKS")
			for _, s := range sessions {
				duration := "running"
				if !s.Ended.IsZero() {
					duration = s.Ended.Sub(s.Started).Round(time.Second).String()
				}
				device := s.DeviceName
				if device == "" {
					device = s.DeviceID
				}
				t.Row(s.Started.Local().Format(time.DateTime), duration, device,
					strconv.Itoa(s.Samples), strconv.Itoa(s.Absent), strconv.Itoa(s.Triggers))
			}
			fmt.Println(t.Render())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to list")
	cmd.Flags().BoolVar(&purge, "purge", false, "Delete all recorded sessions")
	return cmd
}
