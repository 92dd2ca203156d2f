// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"github.com/spf13/cobra"
)

var (
	listenCount       int
	listenReportsOnly bool
	listenStats       int
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Display received frames in human-readable format",
	Long: `Continuously receive and display CAN frames as they arrive.

Each frame is shown with timestamp, identifier, opcode name and decoded
payload for known commands and reports. Anomalies in reports (impossible
release dates, reports from an unexpected identifier) are flagged.

The listener stops on Ctrl+C, after --count frames, or when the connection
is lost.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().IntVarP(&listenCount, "count", "n", 0, "Stop after this many frames (0 = no limit)")
	listenCmd.Flags().BoolVar(&listenReportsOnly, "reports-only", false, "Only show frames from the report identifier")
	listenCmd.Flags().IntVar(&listenStats, "stats-interval", 0, "Print statistics every N seconds (0 = off)")
}

// frameLogger is the Receiver behind listen: it prints frames and keeps
// statistics until the context is cancelled or the frame limit is reached
type frameLogger struct {
	ctx           context.Context
	reportAddress uint32
	reportsOnly   bool
	limit         int
	statsInterval time.Duration

	stats     *actuator.Statistics
	lastStats time.Time
	shown     int
}

func (l *frameLogger) OnFrameReceived(f canbus.Frame) actuator.Outcome {
	report, decodeErr := classifyFrame(f, l.reportAddress)
	anomalies := actuator.ValidateFrame(f.ID, f.Payload(), l.reportAddress)
	l.stats.UpdateFrame(f, report, decodeErr, anomalies)

	if !l.reportsOnly || f.ID == l.reportAddress {
		fmt.Print(actuator.FormatFrame(f, time.Now()))
		for _, a := range anomalies {
			fmt.Printf("  \033[1;33mANOMALY:\033[0m %s\n", a.Message)
		}
		l.shown++
	}

	return l.next()
}

func (l *frameLogger) OnFrameTimeout(err error) actuator.Outcome {
	l.stats.UpdateTimeout()
	return l.next()
}

func (l *frameLogger) OnFrameError(err error) actuator.Outcome {
	l.stats.UpdateError()
	fmt.Fprintf(os.Stderr, "[%s] \033[1;31mRECEIVE ERROR:\033[0m %v\n", time.Now().Format("15:04:05.000"), err)
	return l.next()
}

// next prints periodic statistics and decides whether to keep receiving
func (l *frameLogger) next() actuator.Outcome {
	if l.statsInterval > 0 && time.Since(l.lastStats) >= l.statsInterval {
		l.lastStats = time.Now()
		fmt.Println()
		fmt.Print(l.stats.String())
		fmt.Println()
	}

	if l.ctx.Err() != nil {
		return actuator.Stop
	}
	if l.limit > 0 && l.shown >= l.limit {
		return actuator.Stop
	}
	return actuator.Continue
}

// classifyFrame decodes f as a report when it comes from the report
// identifier. Other frames yield (nil, nil).
func classifyFrame(f canbus.Frame, reportAddress uint32) (actuator.Report, error) {
	if f.ID != reportAddress {
		return nil, nil
	}
	switch b := f.Payload(); {
	case len(b) == 0:
		return nil, nil
	case b[0] == actuator.ReportSoftwareRevision, b[0] == actuator.ReportUniqueDeviceID:
		return actuator.DecodeReport(b)
	default:
		// Confirmation echoes share the report identifier
		return nil, nil
	}
}

func runListen(cmd *cobra.Command, args []string) error {
	a, connInfo, err := NewActuator()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("actuatorctl - Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Report ID: 0x%08X\n", a.ReportAddress())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	l := &frameLogger{
		ctx:           ctx,
		reportAddress: a.ReportAddress(),
		reportsOnly:   listenReportsOnly,
		limit:         listenCount,
		statsInterval: time.Duration(listenStats) * time.Second,
		stats:         actuator.NewStatistics(),
		lastStats:     time.Now(),
	}

	err = a.RunReceiver(l, cfg.Transport.Timeout)

	fmt.Println()
	fmt.Print(l.stats.String())
	return err
}
