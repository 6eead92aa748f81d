package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/coffer/test/integration/shared"
)

const password = "Secret123"

func TestStatusOnFreshInstall(t *testing.T) {
	shared.SetupTestEnvironment(t)

	output := shared.Run(t, "", "status")

	for _, want := range []string{"not encrypted", "assets", "settings", "plaintext", "coffer encryption enable"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected status output to contain %q, got: %s", want, output)
		}
	}
}

func TestStatusJSON(t *testing.T) {
	shared.SetupTestEnvironment(t)

	output := shared.Run(t, "", "status", "--json")

	var status struct {
		State   string `json:"state"`
		Summary struct {
			Plaintext int `json:"plaintext"`
			Encrypted int `json:"encrypted"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(output), &status); err != nil {
		t.Fatalf("Status --json is not JSON: %v\nOutput: %s", err, output)
	}
	if status.State != "unlocked-plain" {
		t.Errorf("Expected state unlocked-plain, got %q", status.State)
	}
	if status.Summary.Plaintext != 6 || status.Summary.Encrypted != 0 {
		t.Errorf("Expected 6 plaintext record sets, got %+v", status.Summary)
	}
}

func TestRecordsAndTotals(t *testing.T) {
	shared.SetupTestEnvironment(t)

	output := shared.Run(t, "", "expense", "add", "--description", "Groceries", "--category", "food", "--amount", "54.20", "--date", "2024-03-01")
	if !strings.Contains(output, "Recorded expense") || !strings.Contains(output, "$54.20") {
		t.Errorf("Unexpected expense add output: %s", output)
	}

	output = shared.Run(t, "", "income", "add", "--source", "ACME", "--category", "Salary", "--amount", "3200", "--recurring")
	if !strings.Contains(output, "$3,200.00") {
		t.Errorf("Unexpected income add output: %s", output)
	}

	output = shared.Run(t, "", "expense", "list")
	if !strings.Contains(output, "Groceries") || !strings.Contains(output, "Food") || !strings.Contains(output, "2024-03-01") {
		t.Errorf("Expected the stored category spelling in expense list, got: %s", output)
	}

	output = shared.Run(t, "", "status")
	if !strings.Contains(output, "balance $3,145.80") {
		t.Errorf("Expected totals in status, got: %s", output)
	}
}

func TestValidationErrorsAreReported(t *testing.T) {
	shared.SetupTestEnvironment(t)

	output := shared.Run(t, "", "expense", "add", "--description", "Gadget", "--category", "Toys", "--amount", "10")
	if !strings.Contains(output, "unknown expense category") {
		t.Errorf("Expected unknown category error, got: %s", output)
	}

	output = shared.Run(t, "", "goal", "contribute", "missing-id", "--amount", "5")
	if !strings.Contains(output, "record not found") {
		t.Errorf("Expected not found error, got: %s", output)
	}
}

func TestGoalProgress(t *testing.T) {
	shared.SetupTestEnvironment(t)

	shared.Run(t, "", "goal", "add", "--name", "Trip", "--target", "1000", "--deadline", "2025-06-01")
	id := firstID(t, shared.Run(t, "", "show", "goals"))

	shared.Run(t, "", "goal", "contribute", id, "--amount", "250")
	output := shared.Run(t, "", "goal", "contribute", id, "--amount", "125.50", "--note", "bonus")
	if !strings.Contains(output, "$375.50 of $1,000.00 saved (37.6%)") {
		t.Errorf("Unexpected progress output: %s", output)
	}

	output = shared.Run(t, "", "goal", "list", "--details")
	if !strings.Contains(output, "bonus") || !strings.Contains(output, "$624.50 to go") {
		t.Errorf("Unexpected goal list output: %s", output)
	}
}

func TestEncryptionLifecycle(t *testing.T) {
	shared.SetupTestEnvironment(t)

	shared.Run(t, "", "asset", "add", "--name", "Savings", "--category", "cash", "--value", "2500")

	output := shared.Run(t, password+"\n"+password+"\n", "encryption", "enable")
	if !strings.Contains(output, "Encryption enabled.") {
		t.Fatalf("Expected encryption to be enabled, got: %s", output)
	}

	output = shared.Run(t, "", "encryption", "enable")
	if !strings.Contains(output, "Encryption is already enabled") || strings.Contains(output, "unlock") {
		t.Errorf("Expected enable on locked data to stop without a password prompt, got: %s", output)
	}

	output = shared.Run(t, "", "status")
	if !strings.Contains(output, "encrypted (locked)") || strings.Contains(output, "plaintext ") {
		t.Errorf("Expected every record set encrypted and the store locked, got: %s", output)
	}

	raw := shared.Run(t, "", "show", "settings", "--raw")
	if strings.Contains(raw, "encryptionEnabled") {
		t.Errorf("Expected ciphertext for settings, got: %s", raw)
	}

	output = shared.Run(t, password+"\n", "asset", "list")
	if !strings.Contains(output, "Savings") || !strings.Contains(output, "$2,500.00") {
		t.Errorf("Expected decrypted asset list, got: %s", output)
	}

	output = shared.Run(t, password+"\n"+password+"\nNew456\nNew456\n", "passwd")
	if !strings.Contains(output, "Password changed.") {
		t.Fatalf("Expected password change, got: %s", output)
	}

	output = shared.Run(t, password+"\nNew456\n", "asset", "list")
	if !strings.Contains(output, "Incorrect password") || !strings.Contains(output, "Savings") {
		t.Errorf("Expected the old password to fail and the new one to unlock, got: %s", output)
	}

	output = shared.Run(t, "New456\nNew456\n", "encryption", "disable")
	if !strings.Contains(output, "Encryption disabled.") {
		t.Fatalf("Expected encryption to be disabled, got: %s", output)
	}

	output = shared.Run(t, "", "asset", "list")
	if !strings.Contains(output, "Savings") {
		t.Errorf("Expected plaintext data to survive, got: %s", output)
	}
}

func TestMismatchedPasswordsLeaveDataPlain(t *testing.T) {
	shared.SetupTestEnvironment(t)

	output := shared.Run(t, "first\nsecond\n", "encryption", "enable")
	if !strings.Contains(output, "Passwords do not match.") {
		t.Errorf("Expected mismatch notice, got: %s", output)
	}

	output = shared.Run(t, "", "status")
	if !strings.Contains(output, "not encrypted") {
		t.Errorf("Expected data to stay unencrypted, got: %s", output)
	}
}

func TestTooManyFailedAttempts(t *testing.T) {
	shared.SetupTestEnvironment(t)
	shared.Run(t, password+"\n"+password+"\n", "encryption", "enable")

	output := shared.Run(t, "a\nb\nc\nd\n", "expense", "list")
	if !strings.Contains(output, "2 attempts remaining") || !strings.Contains(output, "Too many failed attempts") {
		t.Errorf("Expected lockout after three attempts, got: %s", output)
	}
	if strings.Contains(output, "No expenses yet.") {
		t.Errorf("Expected no data after lockout, got: %s", output)
	}

	// A new process starts with a fresh budget.
	output = shared.Run(t, password+"\n", "expense", "list")
	if !strings.Contains(output, "No expenses yet.") {
		t.Errorf("Expected unlock in a new process, got: %s", output)
	}
}

func TestCancelledUnlock(t *testing.T) {
	shared.SetupTestEnvironment(t)
	shared.Run(t, password+"\n"+password+"\n", "encryption", "enable")

	output := shared.Run(t, "", "asset", "list")
	if !strings.Contains(output, "Cancelled.") {
		t.Errorf("Expected cancel notice on end of input, got: %s", output)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	env := shared.SetupTestEnvironment(t)
	backup := filepath.Join(env.DataDir, "backups", "plain.json")

	shared.Run(t, "", "asset", "add", "--name", "Car", "--category", "vehicle", "--value", "8000")

	output := shared.Run(t, "", "export", "-o", backup)
	if !strings.Contains(output, "Exported 6 record sets") {
		t.Fatalf("Unexpected export output: %s", output)
	}

	output = shared.Run(t, "", "clear", "--force")
	if !strings.Contains(output, "Cleared 6 record sets") {
		t.Fatalf("Unexpected clear output: %s", output)
	}
	if output := shared.Run(t, "", "asset", "list"); !strings.Contains(output, "No assets yet.") {
		t.Fatalf("Expected no assets after clear, got: %s", output)
	}

	output = shared.Run(t, "", "import", backup, "--dry-run")
	if !strings.Contains(output, "[dry-run]") || !strings.Contains(output, "Would overwrite: 6") {
		t.Errorf("Unexpected dry-run output: %s", output)
	}
	if output := shared.Run(t, "", "asset", "list"); !strings.Contains(output, "No assets yet.") {
		t.Errorf("Expected dry-run to change nothing, got: %s", output)
	}

	output = shared.Run(t, "", "import", backup)
	if !strings.Contains(output, "Imported 6 record sets") {
		t.Fatalf("Unexpected import output: %s", output)
	}
	if output := shared.Run(t, "", "asset", "list"); !strings.Contains(output, "Car") {
		t.Errorf("Expected the asset back after import, got: %s", output)
	}
}

func TestEncryptedExport(t *testing.T) {
	env := shared.SetupTestEnvironment(t)
	backup := filepath.Join(env.DataDir, "secure.json")

	shared.Run(t, "", "asset", "add", "--name", "House", "--category", "property", "--value", "250000")

	output := shared.Run(t, "backup-pw\nbackup-pw\n", "export", "--encrypted", "-o", backup)
	if !strings.Contains(output, "Backup code:") {
		t.Fatalf("Expected a backup code, got: %s", output)
	}

	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if !strings.Contains(string(data), `"encrypted": true`) || strings.Contains(string(data), "House") {
		t.Errorf("Expected an encrypted backup without plaintext, got: %s", data)
	}

	shared.Run(t, "", "clear", "--force")

	output = shared.Run(t, "wrong\n", "import", backup)
	if !strings.Contains(output, "Incorrect password") {
		t.Errorf("Expected wrong backup password to be reported, got: %s", output)
	}

	output = shared.Run(t, "backup-pw\n", "import", backup, "--replace")
	if !strings.Contains(output, "Imported 6 record sets") || !strings.Contains(output, "password-protected") {
		t.Errorf("Unexpected import output: %s", output)
	}

	// Importing a plaintext backup's settings never turns encryption on.
	if output := shared.Run(t, "", "status"); !strings.Contains(output, "not encrypted") {
		t.Errorf("Expected store to stay unencrypted, got: %s", output)
	}
}

func TestClearDeclined(t *testing.T) {
	shared.SetupTestEnvironment(t)
	shared.Run(t, "", "asset", "add", "--name", "Bike", "--category", "vehicle", "--value", "400")

	output := shared.Run(t, "n\n", "clear")
	if !strings.Contains(output, "Aborted") {
		t.Errorf("Expected clear to abort, got: %s", output)
	}
	if output := shared.Run(t, "", "asset", "list"); !strings.Contains(output, "Bike") {
		t.Errorf("Expected data to survive a declined clear, got: %s", output)
	}
}

func TestLogRecordsOperations(t *testing.T) {
	shared.SetupTestEnvironment(t)

	if output := shared.Run(t, "", "log"); !strings.Contains(output, "No audit log entries found.") {
		t.Errorf("Expected empty log, got: %s", output)
	}

	shared.Run(t, password+"\n"+password+"\n", "encryption", "enable")
	shared.Run(t, "nope\n"+password+"\n", "expense", "list")

	output := shared.Run(t, "", "log", "--op", "encryption-enable")
	if !strings.Contains(output, "encryption-enable") || !strings.Contains(output, "success") {
		t.Errorf("Expected the enable entry, got: %s", output)
	}

	output = shared.Run(t, "", "log", "--op", "unlock", "--oneline")
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "failure") || !strings.Contains(lines[1], "success") {
		t.Errorf("Expected a failed then a successful unlock, got: %s", output)
	}
}

func TestCurrencyAndCategories(t *testing.T) {
	shared.SetupTestEnvironment(t)

	output := shared.Run(t, "", "currency", "eur")
	if !strings.Contains(output, "EUR") {
		t.Errorf("Unexpected currency output: %s", output)
	}

	shared.Run(t, "", "category", "add", "expense", "Pets")
	output = shared.Run(t, "", "category", "list", "expense")
	if !strings.Contains(output, "Pets") || strings.Contains(output, "Salary") {
		t.Errorf("Unexpected category list: %s", output)
	}

	output = shared.Run(t, "", "expense", "add", "--description", "Vet", "--category", "pets", "--amount", "80")
	if !strings.Contains(output, "€") {
		t.Errorf("Expected amounts in euros, got: %s", output)
	}
}

func TestUnknownConfigKeysAreRejected(t *testing.T) {
	env := shared.SetupTestEnvironment(t)

	if err := os.WriteFile(env.ConfigFile, []byte("[security]\niteration = 5000\n"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	output := shared.Run(t, "", "status")
	if !strings.Contains(output, "Unknown settings in config file: security.iteration") {
		t.Errorf("Expected unknown key error, got: %s", output)
	}
}

// firstID returns the id of the first element of a JSON array printed by show.
func firstID(t *testing.T, output string) string {
	t.Helper()

	var items []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(output[strings.Index(output, "["):]), &items); err != nil {
		t.Fatalf("Failed to parse show output: %v\nOutput: %s", err, output)
	}
	if len(items) == 0 {
		t.Fatalf("Expected at least one item in: %s", output)
	}
	return items[0].ID
}
