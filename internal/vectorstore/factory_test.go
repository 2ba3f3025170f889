package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/vectorstore"
)

func TestNew_Chromem(t *testing.T) {
	store, err := vectorstore.New(config.VectorStoreConfig{
		Provider: config.VectorStoreChromem,
		Chromem: config.ChromemConfig{
			Path:       t.TempDir(),
			VectorSize: 3,
		},
	}, &mockEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := vectorstore.New(config.VectorStoreConfig{Provider: "pinecone"}, &mockEmbedder{}, zap.NewNop())
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}
