package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTOML(t *testing.T, data string, env Environment) *Document {
	t.Helper()
	doc, err := Parse([]byte(data), FormatTOML, WithEnvironment(env))
	require.NoError(t, err)
	return doc
}

// hasIssue reports whether the report contains an issue for network/field.
func hasIssue(r *Report, sev Severity, network, field string) bool {
	for _, i := range r.Issues {
		if i.Severity == sev && i.Network == network && i.Field == field {
			return true
		}
	}
	return false
}

const validTail = `
[mocha]

[compilers.solc]
version = "0.8.19"
`

func TestValidate_ShippedDocuments(t *testing.T) {
	for _, path := range []string{"../../configs/netprofile.toml", "../../configs/netprofile.polygon.toml"} {
		t.Run(path, func(t *testing.T) {
			doc, err := Load(path, WithEnvironment(EmptyEnvironment))
			require.NoError(t, err)

			report := Validate(doc, ValidateOptions{})
			assert.True(t, report.Valid(), "issues: %v", report.Issues)
			assert.Empty(t, report.Warnings())
			assert.NoError(t, report.Err())
			assert.Equal(t, doc.Revision.String(), report.Revision)
		})
	}
}

func TestValidate_ExactlyOneConnectionMode(t *testing.T) {
	tests := []struct {
		name    string
		network string
		field   string
	}{
		{
			name: "both direct and provider",
			network: `
[networks.mixed]
host = "127.0.0.1"
port = 8545
network_id = 1
[networks.mixed.provider]
mnemonic = "${MNEMONIC_TEST}"
url = "http://127.0.0.1:8545"
`,
		},
		{
			name: "neither",
			network: `
[networks.mixed]
network_id = 1
`,
		},
		{
			name:  "direct without port",
			field: "port",
			network: `
[networks.mixed]
host = "127.0.0.1"
network_id = 1
`,
		},
		{
			name:  "direct without host",
			field: "host",
			network: `
[networks.mixed]
port = 8545
network_id = 1
`,
		},
		{
			name:  "direct without network id",
			field: "network_id",
			network: `
[networks.mixed]
host = "127.0.0.1"
port = 8545
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseTOML(t, tt.network+validTail, EmptyEnvironment)
			report := Validate(doc, ValidateOptions{})
			assert.False(t, report.Valid())
			assert.True(t, hasIssue(report, SeverityError, "mixed", tt.field), "issues: %v", report.Issues)
			assert.ErrorIs(t, report.Err(), ErrInvalidDocument)
		})
	}
}

func TestValidate_NonNegativeIntegers(t *testing.T) {
	doc := parseTOML(t, `
[networks.sepolia]
network_id = 11155111
confirmations = -1
timeout_blocks = -5
gas_price = -10

[networks.sepolia.provider]
mnemonic = "${MNEMONIC_TEST}"
url = "${INFURA_API_KEY_SEPOLIA}"
polling_interval = -1
address_index = -1
num_addresses = 0

[networks.development]
host = "127.0.0.1"
port = 70000
network_id = 5777
`+validTail, EmptyEnvironment)

	report := Validate(doc, ValidateOptions{})
	for _, field := range []string{
		"confirmations",
		"timeout_blocks",
		"gas_price",
		"provider.polling_interval",
		"provider.address_index",
		"provider.num_addresses",
	} {
		assert.True(t, hasIssue(report, SeverityError, "sepolia", field), "missing issue for %s", field)
	}
	assert.True(t, hasIssue(report, SeverityError, "development", "port"))
}

func TestValidate_RequiredKeys(t *testing.T) {
	doc := parseTOML(t, `
[networks.development]
host = "127.0.0.1"
port = 7545
network_id = 5777
`, EmptyEnvironment)

	report := Validate(doc, ValidateOptions{})
	assert.True(t, hasIssue(report, SeverityError, "", "mocha"))
	assert.True(t, hasIssue(report, SeverityError, "", "compilers.solc.version"))
	assert.False(t, hasIssue(report, SeverityError, "", "networks"))
}

func TestValidate_CompilerVersion(t *testing.T) {
	doc := parseTOML(t, `
[networks]

[mocha]

[compilers.solc]
version = "^0.8"
`, EmptyEnvironment)

	report := Validate(doc, ValidateOptions{})
	assert.True(t, hasIssue(report, SeverityError, "", "compilers.solc.version"))
	assert.True(t, hasIssue(report, SeverityWarning, "", "networks"), "empty networks table is worth a warning")
}

func TestValidate_Secrets(t *testing.T) {
	t.Run("literal mnemonic", func(t *testing.T) {
		doc := parseTOML(t, `
[networks.sepolia]
network_id = 11155111
[networks.sepolia.provider]
mnemonic = "`+testMnemonic+`"
url = "https://sepolia.infura.io/v3/key"
`+validTail, EmptyEnvironment)

		report := Validate(doc, ValidateOptions{})
		assert.True(t, hasIssue(report, SeverityError, "sepolia", "provider.mnemonic"))
		for _, issue := range report.Issues {
			assert.NotContains(t, issue.Message, "junk", "issue messages must not echo secrets")
		}
	})

	t.Run("endpoint that does not resolve to a URL", func(t *testing.T) {
		doc := parseTOML(t, `
[networks.sepolia]
network_id = 11155111
[networks.sepolia.provider]
mnemonic = "${MNEMONIC_TEST}"
url = "${INFURA_API_KEY_SEPOLIA}"
`+validTail, MapEnvironment{"INFURA_API_KEY_SEPOLIA": "just-a-key-not-a-url"})

		report := Validate(doc, ValidateOptions{})
		require.True(t, hasIssue(report, SeverityError, "sepolia", "provider.url"))
		for _, issue := range report.Issues {
			assert.NotContains(t, issue.Message, "just-a-key-not-a-url")
		}
	})

	t.Run("unset variables warn only when asked", func(t *testing.T) {
		doc, err := Load("../../configs/netprofile.toml", WithEnvironment(EmptyEnvironment))
		require.NoError(t, err)

		quiet := Validate(doc, ValidateOptions{})
		assert.Empty(t, quiet.Warnings())

		checked := Validate(doc, ValidateOptions{CheckEnvironment: true})
		assert.True(t, checked.Valid(), "unset variables are warnings, not errors")
		assert.Len(t, checked.Warnings(), 2)
	})
}

func TestValidate_UndocumentedVariables(t *testing.T) {
	data := `
[networks.base]
network_id = 8453
[networks.base.provider]
mnemonic = "${MNEMONIC_TEST}"
url = "https://base-mainnet.infura.io/v3/${BASE_KEY}"
`
	undocumented := parseTOML(t, data+validTail, EmptyEnvironment)
	report := Validate(undocumented, ValidateOptions{})
	assert.True(t, hasIssue(report, SeverityError, "", "env.BASE_KEY"))
	assert.False(t, hasIssue(report, SeverityError, "", "env.MNEMONIC_TEST"))

	documented := parseTOML(t, data+validTail+`
[env.BASE_KEY]
description = "Infura key for Base"
required = true
`, EmptyEnvironment)
	report = Validate(documented, ValidateOptions{})
	assert.True(t, report.Valid(), "issues: %v", report.Issues)
	assert.Equal(t, "Infura key for Base", documented.EnvDocs()["BASE_KEY"].Description)
}

func TestValidate_AddressRange(t *testing.T) {
	network := func(index, count int64) string {
		return fmt.Sprintf(`
[networks.sepolia]
network_id = 11155111
[networks.sepolia.provider]
mnemonic = "${MNEMONIC_TEST}"
url = "https://sepolia.infura.io/v3/key"
address_index = %d
num_addresses = %d
`, index, count)
	}

	tests := []struct {
		name    string
		index   int64
		count   int64
		wantErr bool
	}{
		{"last non-hardened index", 1<<31 - 1, 1, false},
		{"range fits exactly", 1<<31 - 10, 10, false},
		{"range crosses into hardened indexes", 1<<31 - 1, 2, true},
		{"index is hardened", 1 << 31, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseTOML(t, network(tt.index, tt.count)+validTail, EmptyEnvironment)
			report := Validate(doc, ValidateOptions{})
			assert.Equal(t, tt.wantErr, hasIssue(report, SeverityError, "sepolia", "provider.address_index"), "issues: %v", report.Issues)
		})
	}
}

func TestValidate_ProviderWithoutNetworkIDWarns(t *testing.T) {
	doc := parseTOML(t, `
[networks.sepolia.provider]
mnemonic = "${MNEMONIC_TEST}"
url = "https://sepolia.infura.io/v3/key"
`+validTail, EmptyEnvironment)

	report := Validate(doc, ValidateOptions{})
	assert.True(t, report.Valid())
	assert.True(t, hasIssue(report, SeverityWarning, "sepolia", "network_id"))
}

func TestIssue_String(t *testing.T) {
	assert.Equal(t, "error: networks.sepolia.port: bad", Issue{Severity: SeverityError, Network: "sepolia", Field: "port", Message: "bad"}.String())
	assert.Equal(t, "warning: networks.sepolia: bad", Issue{Severity: SeverityWarning, Network: "sepolia", Message: "bad"}.String())
	assert.Equal(t, "error: mocha: bad", Issue{Severity: SeverityError, Field: "mocha", Message: "bad"}.String())
}
