package gemini

import (
	"context"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clientdata"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func fakeClient(t *testing.T, response string, calls *int, opts ...ClientOption) *Client {
	t.Helper()
	c := newClient(zerolog.Nop(), opts...)
	c.generate = func(_ context.Context, parts []*genai.Part) (string, error) {
		*calls++
		require.Len(t, parts, 2)
		assert.Equal(t, recognitionPrompt, parts[0].Text)
		require.NotNil(t, parts[1].InlineData)
		return response, nil
	}
	return c
}

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "bare array", input: `[{"date":"2024-03-01","amount":12.5,"currency":"usd","type":"expense"}]`, want: 1},
		{name: "fenced", input: "```json\n[{\"amount\":3,\"currency\":\"EUR\",\"type\":\"EXPENSE\"}]\n```", want: 1},
		{name: "wrapped", input: `{"transactions":[{"amount":1},{"amount":2}]}`, want: 2},
		{name: "zero amounts dropped", input: `[{"amount":0},{"amount":5}]`, want: 1},
		{name: "empty list", input: `[]`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCandidates(tt.input)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestParseCandidates_Normalizes(t *testing.T) {
	got, err := parseCandidates(`[{"amount":9.9,"currency":" cny ","type":"income","merchant":" Boss "}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CNY", got[0].Currency)
	assert.Equal(t, "INCOME", got[0].Type)
	assert.Equal(t, "Boss", got[0].Merchant)
}

func TestParseCandidates_Invalid(t *testing.T) {
	_, err := parseCandidates("I could not read this receipt")
	assert.Error(t, err)

	_, err = parseCandidates("   ")
	assert.Error(t, err)
}

func TestRecognize(t *testing.T) {
	calls := 0
	c := fakeClient(t, `[{"date":"2024-03-01","amount":42,"currency":"USD","type":"EXPENSE","merchant":"Cafe"}]`, &calls)

	got, err := c.Recognize(context.Background(), []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 42.0, got[0].Amount)
	assert.Equal(t, "Cafe", got[0].Merchant)
	assert.Equal(t, 1, calls)
}

func TestRecognize_RejectsBadInput(t *testing.T) {
	calls := 0
	c := fakeClient(t, `[]`, &calls)

	_, err := c.Recognize(context.Background(), nil, "image/png")
	assert.Error(t, err)

	_, err = c.Recognize(context.Background(), make([]byte, MaxImageBytes+1), "image/png")
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestRecognize_UsesCache(t *testing.T) {
	db := testhelpers.NewTestDB(t, "client_data")
	repo := clientdata.NewRepository(db.Conn())

	calls := 0
	c := fakeClient(t, `[{"amount":7,"currency":"EUR","type":"EXPENSE"}]`, &calls, WithCache(repo))

	image := []byte("same receipt")
	first, err := c.Recognize(context.Background(), image, "image/jpeg")
	require.NoError(t, err)
	second, err := c.Recognize(context.Background(), image, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	_, err = c.Recognize(context.Background(), []byte("other receipt"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithModel(t *testing.T) {
	assert.Equal(t, DefaultModel, newClient(zerolog.Nop(), WithModel("")).model)
	assert.Equal(t, "gemini-pro", newClient(zerolog.Nop(), WithModel("gemini-pro")).model)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", zerolog.Nop())
	assert.Error(t, err)
}
