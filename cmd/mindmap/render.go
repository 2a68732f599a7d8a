package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/logging"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/mindmap"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/normalize"
)

// renderOutput is what render writes to stdout.
type renderOutput struct {
	Graph *mindmap.Graph `json:"graph"`
	View  mindmap.View   `json:"view"`
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Build a mind map from backend payload files and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientPath, _ := cmd.Flags().GetString("patient")
			rxPath, _ := cmd.Flags().GetString("prescriptions")
			highlight, _ := cmd.Flags().GetString("highlight")
			pretty, _ := cmd.Flags().GetBool("pretty")
			verbose, _ := cmd.Flags().GetBool("verbose")

			level := "error"
			if verbose {
				level = "debug"
			}
			logger, err := logging.New("development", level)
			if err != nil {
				return err
			}
			defer logger.Sync()

			patientRaw, err := os.ReadFile(patientPath)
			if err != nil {
				return fmt.Errorf("read patient: %w", err)
			}

			var rxRaw []byte
			if rxPath != "" {
				rxRaw, err = os.ReadFile(rxPath)
				if err != nil {
					return fmt.Errorf("read prescriptions: %w", err)
				}
			}

			return render(cmd.Context(), normalize.New(logger, nil), patientRaw, rxRaw, highlight, pretty, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().String("patient", "", "Path to a patient payload (JSON)")
	cmd.Flags().String("prescriptions", "", "Path to a prescriptions payload (JSON)")
	cmd.Flags().String("highlight", "", "Node id to highlight")
	cmd.Flags().Bool("pretty", false, "Indent the output")
	cmd.Flags().Bool("verbose", false, "Log skipped records to stderr")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

// render normalizes the payloads, builds the mind map and writes it with its
// view. A patient payload that cannot be read as a patient is an error; bad
// prescriptions are skipped.
func render(ctx context.Context, n *normalize.Normalizer, patientRaw, rxRaw []byte, highlight string, pretty bool, w io.Writer, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := n.Patient(ctx, patientRaw)
	if err != nil {
		return fmt.Errorf("patient payload: %w", err)
	}

	var rxs []clinical.Prescription
	if len(rxRaw) > 0 {
		rxs = n.Prescriptions(ctx, rxRaw)
	}
	g := mindmap.Build(*p, rxs)
	logger.Debug("mind map built",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", len(g.Edges)),
	)

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(renderOutput{Graph: g, View: mindmap.Render(g, highlight)})
}
