package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateKt        float64
	simulateDirection float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a test alert for the given wind speed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateKt <= 0 {
			return errors.New("--kt must be greater than 0")
		}

		var direction *float64
		if cmd.Flags().Changed("direction") {
			if simulateDirection < 0 || simulateDirection >= 360 {
				return errors.New("--direction must be within [0, 360)")
			}
			direction = &simulateDirection
		}

		return getApp().SimulateAlert(cmd.Context(), simulateKt, direction)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateKt, "kt", 0, "Wind speed in knots")
	simulateCmd.Flags().Float64Var(&simulateDirection, "direction", 0, "Wind direction in degrees")
}
