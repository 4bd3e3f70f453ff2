package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/applytrack/applytrack/pkg/crypto"
	"github.com/applytrack/applytrack/pkg/database"
	"github.com/applytrack/applytrack/pkg/models"
)

// AIConfigRepository defines the interface for the singleton AI settings row.
// When an encryptor is configured the Gemini API key is sealed before storage
// and opened after retrieval.
type AIConfigRepository interface {
	// Get returns the stored settings. When none exist, defaults are written
	// and returned, so the result is never nil on success.
	Get(ctx context.Context) (*models.AIProviderConfig, error)

	// Set overwrites the stored settings, keeping the singleton row id.
	Set(ctx context.Context, config *models.AIProviderConfig) error
}

type aiConfigRepository struct {
	db        *database.DB
	encryptor *crypto.SecretEncryptor // Optional
}

// NewAIConfigRepository creates a new AI config repository. encryptor may be
// nil, in which case the API key is stored as given.
func NewAIConfigRepository(db *database.DB, encryptor *crypto.SecretEncryptor) AIConfigRepository {
	return &aiConfigRepository{db: db, encryptor: encryptor}
}

var _ AIConfigRepository = (*aiConfigRepository)(nil)

// ErrCredentialsKeyRequired is returned when the stored key is sealed but no
// encryptor was configured to open it.
var ErrCredentialsKeyRequired = errors.New("stored API key is encrypted but no credentials key is configured")

func (r *aiConfigRepository) Get(ctx context.Context) (*models.AIProviderConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on defer is best-effort

	config, storedKey, err := queryAIConfig(ctx, tx)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = models.DefaultAIProviderConfig()
		if config.ID, err = insertAIConfig(ctx, tx, config, ""); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if config.GeminiAPIKey, err = r.openKey(storedKey); err != nil {
		return nil, err
	}
	return config, nil
}

func (r *aiConfigRepository) Set(ctx context.Context, config *models.AIProviderConfig) error {
	if config == nil {
		return fmt.Errorf("set ai config: config is nil")
	}

	storedKey, err := r.sealKey(config.GeminiAPIKey)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on defer is best-effort

	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT Id FROM AiSettings ORDER BY Id LIMIT 1`).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err := insertAIConfig(ctx, tx, config, storedKey)
		if err != nil {
			return err
		}
		existingID = id
	case err != nil:
		return fmt.Errorf("query ai settings: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE AiSettings
			SET SelectedProvider = ?, OllamaUrl = ?, DefaultOllamaModel = ?, GeminiApiKey = ?,
			    GeminiModel = ?, Temperature = ?
			WHERE Id = ?`,
			string(config.SelectedProvider), config.OllamaURL, config.DefaultOllamaModel, storedKey,
			config.GeminiModel, config.Temperature, existingID)
		if err != nil {
			return fmt.Errorf("update ai settings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	config.ID = existingID
	return nil
}

// queryAIConfig returns nil when no row exists. The key is returned as stored.
func queryAIConfig(ctx context.Context, q database.Querier) (*models.AIProviderConfig, string, error) {
	var (
		config    models.AIProviderConfig
		provider  string
		storedKey string
	)
	err := q.QueryRowContext(ctx, `
		SELECT Id, COALESCE(SelectedProvider, ''), COALESCE(OllamaUrl, ''), COALESCE(DefaultOllamaModel, ''),
		       COALESCE(GeminiApiKey, ''), COALESCE(GeminiModel, ''), COALESCE(Temperature, 0.7)
		FROM AiSettings ORDER BY Id LIMIT 1`).
		Scan(&config.ID, &provider, &config.OllamaURL, &config.DefaultOllamaModel,
			&storedKey, &config.GeminiModel, &config.Temperature)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("query ai settings: %w", err)
	}

	config.SelectedProvider = models.AIProvider(provider)
	if config.SelectedProvider == "" {
		config.SelectedProvider = models.AIProviderOllama
	}
	if config.GeminiModel == "" {
		config.GeminiModel = models.DefaultGeminiModel
	}
	return &config, storedKey, nil
}

func insertAIConfig(ctx context.Context, q database.Querier, config *models.AIProviderConfig, storedKey string) (int64, error) {
	id, err := insertRow(ctx, q, `
		INSERT INTO AiSettings (SelectedProvider, OllamaUrl, DefaultOllamaModel, GeminiApiKey, GeminiModel, Temperature)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(config.SelectedProvider), config.OllamaURL, config.DefaultOllamaModel, storedKey,
		config.GeminiModel, config.Temperature)
	if err != nil {
		return 0, fmt.Errorf("insert ai settings: %w", err)
	}
	return id, nil
}

func (r *aiConfigRepository) sealKey(key string) (string, error) {
	if r.encryptor == nil {
		return key, nil
	}
	sealed, err := r.encryptor.Seal(key)
	if err != nil {
		return "", fmt.Errorf("encrypt gemini key: %w", err)
	}
	return sealed, nil
}

func (r *aiConfigRepository) openKey(stored string) (string, error) {
	if r.encryptor == nil {
		if crypto.IsSealed(stored) {
			return "", ErrCredentialsKeyRequired
		}
		return stored, nil
	}
	key, err := r.encryptor.Open(stored)
	if err != nil {
		return "", fmt.Errorf("decrypt gemini key: %w", err)
	}
	return key, nil
}
