package cli

import (
	"testing"
)

func TestExecuteWrapper(t *testing.T) {
	// inject a client so PersistentPreRunE will no-op
	useServer(t, 3)
	rootCmd.SetArgs([]string{"categories"})
	if _, err := captureOutput(Execute); err != nil {
		t.Fatalf("Execute wrapper failed: %v", err)
	}
}
