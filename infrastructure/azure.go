package infrastructure

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/rs/zerolog/log"
)

type AzureStore struct {
	container azblob.ContainerURL
}

func NewAzureStore(account, key, container string) (*AzureStore, error) {
	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("azblob.NewSharedKeyCredential: %w", err)
	}
	u, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", account, container))
	if err != nil {
		return nil, err
	}
	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	return &AzureStore{container: azblob.NewContainerURL(*u, pipeline)}, nil
}

func (s *AzureStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	blob := s.container.NewBlockBlobURL(name)
	log.Debug().Str("blob", name).Msg("uploading to azure blob storage")

	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blob, azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{ContentType: "audio/wav"},
	})
	if err != nil {
		return "", fmt.Errorf("azblob.UploadBufferToBlockBlob: %w", err)
	}

	u := blob.URL()
	return u.String(), nil
}
