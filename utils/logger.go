package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

// InitLogger -> dua logger terpisah: info ke stdout, error ke stderr.
// LOG_LEVEL=debug menurunkan threshold keduanya.
func InitLogger() {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	InfoLogger.SetLevel(logrus.InfoLevel)

	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	ErrorLogger.SetLevel(logrus.ErrorLevel)

	if os.Getenv("LOG_LEVEL") == "debug" {
		InfoLogger.SetLevel(logrus.DebugLevel)
		ErrorLogger.SetLevel(logrus.DebugLevel)
	}
}
