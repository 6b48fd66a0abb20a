package extractor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantKind  Kind
		wantValue string
	}{
		{
			name:      "record id with 500 prefix",
			text:      "summarize 5005g00000AbCdEfGh please",
			wantKind:  KindCaseID,
			wantValue: "5005g00000AbCdEfGh",
		},
		{
			name:      "any 18 char mixed token is a record id",
			text:      "look at ABC123DEF456GHI789",
			wantKind:  KindCaseID,
			wantValue: "ABC123DEF456GHI789",
		},
		{
			name:      "17 char token is ambiguous",
			text:      "look at ABC123DEF456GHI78",
			wantKind:  KindAmbiguousID,
			wantValue: "ABC123DEF456GHI78",
		},
		{
			name:      "15 char token is ambiguous",
			text:      "status of a1b2c3d4e5f6g7h",
			wantKind:  KindAmbiguousID,
			wantValue: "a1b2c3d4e5f6g7h",
		},
		{
			name:      "nine digits are ambiguous, not a case number",
			text:      "123456789",
			wantKind:  KindAmbiguousID,
			wantValue: "123456789",
		},
		{
			name:      "labeled case number",
			text:      "Show me case 00001163",
			wantKind:  KindCaseNumber,
			wantValue: "00001163",
		},
		{
			name:      "casenumber with equals sign",
			text:      "CaseNumber = 00001159",
			wantKind:  KindCaseNumber,
			wantValue: "00001159",
		},
		{
			name:      "case number with colon and no space",
			text:      "case:42",
			wantKind:  KindCaseNumber,
			wantValue: "42",
		},
		{
			name:      "bare five digit run",
			text:      "what happened with 12345 yesterday",
			wantKind:  KindCaseNumber,
			wantValue: "12345",
		},
		{
			name:      "label wins over an earlier bare number",
			text:      "order 55555 relates to case 00001163",
			wantKind:  KindCaseNumber,
			wantValue: "00001163",
		},
		{
			name:     "four digits are not a case number",
			text:     "error 4040 on boot",
			wantKind: KindNone,
		},
		{
			name:     "pure alphabetic long words are skipped",
			text:     "troubleshooting salesforce integration",
			wantKind: KindNone,
		},
		{
			name:     "no identifier",
			text:     "what's next?",
			wantKind: KindNone,
		},
		{
			name:     "empty",
			text:     "",
			wantKind: KindNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			assert.Equal(t, tt.wantKind, got.Kind, "kind for %q", tt.text)
			assert.Equal(t, tt.wantValue, got.Value)
		})
	}
}

func TestExtract_ExtraStopwords(t *testing.T) {
	e := New("FW2024Release", "  ")

	got := e.Extract("did the FW2024Release fix it")
	assert.Equal(t, KindNone, got.Kind)

	got = Extract("did the FW2024Release fix it")
	assert.Equal(t, KindAmbiguousID, got.Kind)
}

func TestExtract_RecordIDsAreNeverAmbiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		id := "500" + randomAlnum(rng, 15)
		got := Extract("please check " + id + " today")
		assert.Equal(t, KindCaseID, got.Kind, id)
		assert.Equal(t, id, got.Value)
	}
}

func TestExtract_MidLengthTokensAreAmbiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for length := 9; length <= 17; length++ {
		for i := 0; i < 50; i++ {
			// force a digit so the token is never purely alphabetic
			token := "7" + randomAlnum(rng, length-1)
			got := Extract("ref " + token)
			assert.Equal(t, KindAmbiguousID, got.Kind, token)
			assert.Equal(t, token, got.Value)
		}
	}
}

func TestCaseNumber(t *testing.T) {
	assert.Equal(t, "00001163", CaseNumber("case 00001163"))
	assert.Equal(t, "77", CaseNumber("CASE: 77"))
	assert.Equal(t, "", CaseNumber("nothing here"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "case_id", KindCaseID.String())
	assert.Equal(t, "ambiguous_id", KindAmbiguousID.String())
	assert.Equal(t, "case_number", KindCaseNumber.String())
	assert.Equal(t, "none", KindNone.String())
}

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomAlnum(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alnum[rng.Intn(len(alnum))]
	}
	return string(b)
}
