// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/spf13/cobra"
)

var (
	resetType    uint16
	resetTypeExt uint16

	pwmMin  uint8
	pwmMax  uint8
	pwmFreq uint16
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the actuator",
	Long: `Send a reset command. At least one of --type and --ext must be given;
each is sent as a big-endian 16-bit value.

Only the confirmation echo is read back (with --confirm).`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var pwmCmd = &cobra.Command{
	Use:   "pwm",
	Short: "Configure the PWM output",
	Long: `Send a PWM frequency command.

  --min   minimum duty cycle in percent (0-100, default 0)
  --max   maximum duty cycle in percent (0-100, default 100)
  --freq  PWM frequency in Hz (sent only when given)

Only the confirmation echo is read back (with --confirm).`,
	Args: cobra.NoArgs,
	RunE: runPWM,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	addResponseFlags(resetCmd)
	resetCmd.Flags().Uint16Var(&resetType, "type", 0, "Reset type")
	resetCmd.Flags().Uint16Var(&resetTypeExt, "ext", 0, "Extended reset type")

	rootCmd.AddCommand(pwmCmd)
	addResponseFlags(pwmCmd)
	pwmCmd.Flags().Uint8Var(&pwmMin, "min", 0, "Minimum duty cycle (percent)")
	pwmCmd.Flags().Uint8Var(&pwmMax, "max", 100, "Maximum duty cycle (percent)")
	pwmCmd.Flags().Uint16Var(&pwmFreq, "freq", 0, "PWM frequency (Hz)")
}

// optional returns a pointer to v when the flag was set on the command line
func optional[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func runReset(cmd *cobra.Command, args []string) error {
	a, _, err := OpenActuator(waitResponse)
	if err != nil {
		return err
	}
	defer a.Close()

	return sendReset(a, optional(cmd, "type", resetType), optional(cmd, "ext", resetTypeExt))
}

// sendReset issues the reset. The engine rejects a reset with neither type
// set before anything is sent.
func sendReset(a *actuator.Actuator, typ, ext *uint16) error {
	if err := a.Reset(typ, ext, confirmation, waitResponse); err != nil {
		return err
	}
	printSent("Reset")
	return nil
}

func runPWM(cmd *cobra.Command, args []string) error {
	a, _, err := OpenActuator(waitResponse)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.PWMFrequency(
		optional(cmd, "min", pwmMin),
		optional(cmd, "max", pwmMax),
		optional(cmd, "freq", pwmFreq),
		confirmation, waitResponse,
	)
	if err != nil {
		return err
	}
	printSent("PWM configuration")
	return nil
}

func printSent(what string) {
	if confirmation && waitResponse {
		fmt.Printf("%s confirmed\n", what)
	} else {
		fmt.Printf("%s sent\n", what)
	}
}
