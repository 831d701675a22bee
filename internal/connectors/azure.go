package connectors

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type azureConnector struct {
	client    *azblob.Client
	container string
	prefix    string
}

func NewAzureBlobConnector(ctx context.Context) (Connector, error) {
	account := os.Getenv("AZURE_STORAGE_ACCOUNT")
	key := os.Getenv("AZURE_STORAGE_KEY")
	container := os.Getenv("AZURE_BLOB_CONTAINER")
	if account == "" || key == "" || container == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT/AZURE_STORAGE_KEY/AZURE_BLOB_CONTAINER required for azure connector")
	}
	prefix := os.Getenv("AZURE_BLOB_PREFIX")
	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("build shared key credential: %w", err)
	}
	url := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	client, err := azblob.NewClientWithSharedKeyCredential(url, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &azureConnector{
		client:    client,
		container: container,
		prefix:    prefix,
	}, nil
}

func (a *azureConnector) Name() string {
	return "azure"
}

func (a *azureConnector) StoreArtifact(ctx context.Context, requestID, name, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	_, err = a.client.UploadFile(ctx, a.container, a.keyFor(requestID, name), f, nil)
	return err
}

func (a *azureConnector) keyFor(requestID, name string) string {
	if a.prefix == "" {
		return path.Join(requestID, name)
	}
	return path.Join(a.prefix, requestID, name)
}
