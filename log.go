package fluentdb

import "go.uber.org/zap"

// LogFunc receives one line per successful command, with the command
// rendered as literal SQL.
type LogFunc func(message string)

// ZapLog writes the messages to a zap logger at info level.
func ZapLog(logger *zap.Logger) LogFunc {
	return func(message string) {
		logger.Info(message)
	}
}

func commandLogMessage(tx *TransactionContext, rendered string) string {
	if tx != nil {
		return "Transaction: " + tx.ID() + " - " + rendered
	}
	return " - " + rendered
}
