// File: cmd/classify.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/threatgraph/api/schemas"
	"github.com/xkilldash9x/threatgraph/internal/risk"
)

func newClassifyCmd() *cobra.Command {
	var threatsFile string

	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a set of threat signals into a risk score and level",
		Long:  `Reads a JSON array of detected threats (severity + confidence) and prints the aggregate risk score and level computed with the default policy. Useful for spot-checking backend-supplied scores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var threats []schemas.DetectedThreat
			if err := readJSONFile(threatsFile, &threats); err != nil {
				return err
			}

			score, level := risk.ClassifyThreats(threats, risk.DefaultPolicy())
			fmt.Printf("risk_score: %.1f\nrisk_level: %s\n", score, level)
			return nil
		},
	}

	classifyCmd.Flags().StringVar(&threatsFile, "threats", "", "Path to a JSON file with an array of detected threats (required)")
	_ = classifyCmd.MarkFlagRequired("threats")

	return classifyCmd
}
