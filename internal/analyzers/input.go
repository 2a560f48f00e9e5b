// -----------------------------------------------------------------------
// InputBuilder - Assembles the JSON document fed to an analyzer's stdin
// -----------------------------------------------------------------------

package analyzers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// InputBuilder prepares analyzer input documents. For file observables it
// materialises the stored attachment into a temporary file so the analyzer
// can read it from disk; the returned cleanup removes that file.
type InputBuilder struct {
	attachments interfaces.AttachmentStore
	logger      arbor.ILogger
}

// NewInputBuilder creates an input builder backed by the attachment store
func NewInputBuilder(attachments interfaces.AttachmentStore, logger arbor.ILogger) *InputBuilder {
	return &InputBuilder{
		attachments: attachments,
		logger:      logger,
	}
}

// Build assembles the input document for one job.
//
// The effective configuration layers, lowest priority first: the
// definition's shipped defaults, the analyzer instance's config, the
// job's parameters. The instance config and parameters are validated
// against the definition's schema before merging.
//
// cleanup is never nil and must be called after the analyzer process ends.
func (b *InputBuilder) Build(ctx context.Context, job *models.Job, analyzer *models.Analyzer, def *models.AnalyzerDefinition) (map[string]interface{}, func(), error) {
	cleanup := func() {}

	overlay := mergeConfig(analyzer.Config, job.Parameters)
	validated, err := models.ValidateConfiguration(overlay, def.ConfigurationItems)
	if err != nil {
		return nil, cleanup, err
	}
	config := mergeConfig(def.Configuration, validated)

	input := map[string]interface{}{
		"dataType": job.DataType,
		"tlp":      job.TLP,
		"message":  job.Message,
		"config":   config,
	}

	if job.Attachment != nil {
		path, err := b.materialize(ctx, job.Attachment)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				b.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temporary attachment file")
			}
		}
		input["file"] = path
		input["filename"] = job.Attachment.Name
		input["contentType"] = job.Attachment.ContentType
	} else {
		input["data"] = job.Data
	}

	return input, cleanup, nil
}

// materialize copies the attachment content into a temporary file and
// returns its path.
func (b *InputBuilder) materialize(ctx context.Context, attachment *models.Attachment) (string, error) {
	source, err := b.attachments.Source(ctx, attachment.ID)
	if err != nil {
		return "", fmt.Errorf("failed to open attachment %s: %w", attachment.ID, err)
	}
	defer source.Close()

	tmp, err := os.CreateTemp("", "scrutor-observable-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary attachment file: %w", err)
	}

	_, err = io.Copy(tmp, source)
	if closeErr := tmp.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temporary attachment file: %w", err)
	}

	return tmp.Name(), nil
}

// mergeConfig overlays b on top of a, merging nested maps one level deep
func mergeConfig(a, b map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		nested, ok := v.(map[string]interface{})
		if !ok {
			merged[k] = v
			continue
		}
		existing, ok := merged[k].(map[string]interface{})
		if !ok {
			merged[k] = nested
			continue
		}
		merged[k] = mergeConfig(existing, nested)
	}
	return merged
}
