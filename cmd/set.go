// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emberline/pyrostat/pkg/airheat"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a heater setting",
}

var setPowerCmd = &cobra.Command{
	Use:       "power {on|off}",
	Short:     "Turn the heater on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var on bool
		switch args[0] {
		case "on":
			on = true
		case "off":
			on = false
		default:
			return fmt.Errorf("power takes 'on' or 'off', got %q", args[0])
		}
		return submitSetting(cmd, func(p *airheat.Profile) (airheat.Command, error) {
			return airheat.NewPowerSet(p, on), nil
		})
	},
}

var setTempCmd = &cobra.Command{
	Use:   "temp <celsius>",
	Short: "Set the target cabin temperature",
	Long: fmt.Sprintf(`Set the target temperature in whole degrees Celsius, %d to %d
for the default profile.`, airheat.MinTemperature, airheat.MaxTemperature),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deg, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("temperature %q is not a number", args[0])
		}
		return submitSetting(cmd, func(p *airheat.Profile) (airheat.Command, error) {
			return airheat.NewTemperatureSet(p, deg)
		})
	},
}

var setFanCmd = &cobra.Command{
	Use:   "fan <level>",
	Short: "Set the fan speed level",
	Long: fmt.Sprintf(`Set the fan speed level, %d to %d for the default profile.`,
		airheat.MinFanSpeed, airheat.MaxFanSpeed),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("fan level %q is not a number", args[0])
		}
		return submitSetting(cmd, func(p *airheat.Profile) (airheat.Command, error) {
			return airheat.NewFanSpeedSet(p, level)
		})
	},
}

func init() {
	setCmd.AddCommand(setPowerCmd)
	setCmd.AddCommand(setTempCmd)
	setCmd.AddCommand(setFanCmd)
	rootCmd.AddCommand(setCmd)
}

// submitSetting connects, sends one command built against the live
// profile, and prints the status the heater echoes back.
func submitSetting(cmd *cobra.Command, build func(*airheat.Profile) (airheat.Command, error)) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	mgr, err := openSession(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	command, err := build(mgr.Profile())
	if err != nil {
		return err
	}

	snap, err := mgr.Submit(cmd.Context(), command)
	if err != nil {
		return fmt.Errorf("%s: %w", command.Name(), err)
	}

	fmt.Println(airheat.FormatStatus(snap))
	return nil
}
