// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/spf13/cobra"
)

var (
	confirmation bool
	waitResponse bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Query the actuator software revision",
	Long: `Send a software version query and print the revision report.

With --confirm the actuator first echoes the command before sending the
report. With --wait=false the query is sent and nothing is read back.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

var uidCmd = &cobra.Command{
	Use:   "uid",
	Short: "Query the actuator unique device identifier",
	Long: `Send a unique device ID query and print the 48-bit identifier from the
report.`,
	Args: cobra.NoArgs,
	RunE: runUID,
}

func init() {
	for _, c := range []*cobra.Command{versionCmd, uidCmd} {
		addResponseFlags(c)
		rootCmd.AddCommand(c)
	}
}

// addResponseFlags adds the --confirm and --wait flags shared by every
// operation command
func addResponseFlags(c *cobra.Command) {
	c.Flags().BoolVar(&confirmation, "confirm", true, "Request a confirmation echo")
	c.Flags().BoolVar(&waitResponse, "wait", true, "Wait for the response")
}

func runVersion(cmd *cobra.Command, args []string) error {
	a, _, err := OpenActuator(waitResponse)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.SoftwareVersionData(confirmation, waitResponse)
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Println("Query sent")
		return nil
	}

	fmt.Print(formatVersionReport(report))
	return nil
}

func runUID(cmd *cobra.Command, args []string) error {
	a, _, err := OpenActuator(waitResponse)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.UniqueDeviceID(confirmation, waitResponse)
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Println("Query sent")
		return nil
	}

	fmt.Printf("Actuator ID: %012X\n", report.ActuatorIDPart())
	return nil
}

// formatVersionReport prints the revision and, when the date bytes form a
// real date, the release date
func formatVersionReport(r *actuator.SoftwareRevisionReport) string {
	result := fmt.Sprintf("Software version: %s\n", r.SoftwareVersion())
	if date, err := r.ReleaseDate(); err == nil {
		result += fmt.Sprintf("Release date:     %s\n", date.Format("2006-01-02"))
	} else {
		result += fmt.Sprintf("Release date:     %02d/%02d/%02d (invalid: %v)\n", r.SwDay(), r.SwMonth(), r.SwYear(), err)
	}
	return result
}
