package utils

import (
	"io"

	"github.com/MrSnakeDoc/toonshare/internal/logger"
)

// Close closes c and ignores any error.
func Close(c io.Closer) {
	_ = c.Close()
}

// CloseLogged closes c and reports the outcome under name.
// It returns the close error so shutdown paths can aggregate them.
func CloseLogged(log logger.Logger, name string, c io.Closer) error {
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("resource", name), logger.Error(err))
		return err
	}
	log.Debug("closed", logger.String("resource", name))
	return nil
}
