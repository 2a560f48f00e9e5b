package badger

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// UsersFile is the on-disk shape of the users TOML file
type UsersFile struct {
	Users []struct {
		ID           string   `toml:"id"`
		Name         string   `toml:"name"`
		APIKey       string   `toml:"api_key"`
		Organization string   `toml:"organization"`
		Roles        []string `toml:"roles"`
	} `toml:"user"`
}

// LoadUsersFromFile loads users from a TOML file into storage. Missing
// file is not an error so a fresh deployment can start empty.
func LoadUsersFromFile(ctx context.Context, storage interfaces.UserStorage, filePath string, logger arbor.ILogger) error {
	if filePath == "" {
		logger.Debug().Msg("No users file configured, skipping")
		return nil
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		logger.Debug().Str("file", filePath).Msg("Users file does not exist, skipping")
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read users file: %w", err)
	}

	var usersFile UsersFile
	if err := toml.Unmarshal(data, &usersFile); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}

	loadedCount := 0
	for _, u := range usersFile.Users {
		if u.ID == "" || u.APIKey == "" || u.Organization == "" {
			logger.Warn().Str("user_id", u.ID).Msg("User entry missing id, api_key or organization, skipping")
			continue
		}

		user := &models.User{
			ID:           u.ID,
			Name:         u.Name,
			APIKey:       u.APIKey,
			Organization: u.Organization,
			Roles:        u.Roles,
		}
		if user.Name == "" {
			user.Name = user.ID
		}

		if err := storage.SaveUser(ctx, user); err != nil {
			logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to save user")
			continue
		}
		loadedCount++
	}

	logger.Info().Int("count", loadedCount).Str("file", filePath).Msg("Users loaded from file")
	return nil
}
