package grpcjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodec_Registered(t *testing.T) {
	codec := encoding.GetCodec(Name)
	require.NotNil(t, codec)
	assert.Equal(t, "json", codec.Name())
}

func TestCodec_RoundTrip(t *testing.T) {
	type msg struct {
		CardID string `json:"card_id"`
		Amount string `json:"amount"`
	}

	data, err := Codec{}.Marshal(msg{CardID: "c-1", Amount: "12.50"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"card_id":"c-1","amount":"12.50"}`, string(data))

	var out msg
	require.NoError(t, Codec{}.Unmarshal(data, &out))
	assert.Equal(t, "12.50", out.Amount)
}
