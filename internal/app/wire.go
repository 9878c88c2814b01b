package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"tintero.dev/escriba/internal/composer"
	"tintero.dev/escriba/internal/config"
	"tintero.dev/escriba/internal/dedupe"
	"tintero.dev/escriba/internal/pipeline"
	"tintero.dev/escriba/internal/sheet"
	"tintero.dev/escriba/internal/wordpress"
)

// buildPipeline wires the full run service from configuration. Any failure
// here is startup-fatal.
func buildPipeline(cfg *config.Config, logger zerolog.Logger) (*pipeline.Service, error) {
	source, err := buildSheetSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	sheets, err := sheet.NewClient(source, cfg.MainSheetName, cfg.IndexSheetName, logger)
	if err != nil {
		return nil, fmt.Errorf("build sheet client: %w", err)
	}

	chat, err := composer.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	if err != nil {
		return nil, fmt.Errorf("build composer client: %w", err)
	}

	publisher, err := wordpress.NewClient(cfg.WordPressBaseURL, wordpress.Auth{
		Method:   cfg.NormalizedAuthMethod(),
		User:     cfg.WordPressUser,
		Password: cfg.WordPressPassword,
		JWTToken: cfg.WordPressJWTToken,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build wordpress client: %w", err)
	}

	detector := dedupe.NewDetector(chat, logger)

	service, err := pipeline.NewService(sheets, chat, publisher, detector, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline service: %w", err)
	}
	return service, nil
}

func buildSheetSource(cfg *config.Config, logger zerolog.Logger) (sheet.Source, error) {
	switch cfg.NormalizedSheetBackend() {
	case config.SheetBackendExcel:
		source, err := sheet.NewExcelSource(cfg.WorkbookPath, logger)
		if err != nil {
			return nil, fmt.Errorf("build excel source: %w", err)
		}
		return source, nil
	default:
		source, err := sheet.NewGoogleSource(cfg.SpreadsheetID, cfg.CredentialsJSON, logger)
		if err != nil {
			return nil, fmt.Errorf("build google sheets source: %w", err)
		}
		return source, nil
	}
}
