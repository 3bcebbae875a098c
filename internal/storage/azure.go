package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/sirupsen/logrus"
)

// BlobArchive keeps rendered reports in an Azure Blob Storage container
type BlobArchive struct {
	client    *azblob.Client
	container string
}

// Ensure BlobArchive implements ReportArchive
var _ ReportArchive = (*BlobArchive)(nil)

// NewBlobArchive opens the container with the default Azure credential
// chain, creating it on first use.
func NewBlobArchive(ctx context.Context, account, container string) (*BlobArchive, error) {
	if account == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azblob.NewClient(fmt.Sprintf("https://%s.blob.core.windows.net/", account), credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	archive := &BlobArchive{client: client, container: container}
	if _, err := client.CreateContainer(ctx, container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("failed to create report container %s: %w", container, err)
		}
	} else {
		logrus.Infof("Created report container %s", container)
	}
	return archive, nil
}

// blobError maps a missing blob to models.ErrNotFound
func blobError(op, name string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("report %s: %w", name, models.ErrNotFound)
	}
	return fmt.Errorf("failed to %s report %s: %w", op, name, err)
}

// Store uploads a report with its content type so it downloads as rendered
func (a *BlobArchive) Store(ctx context.Context, name, contentType string, data []byte) error {
	if err := checkArchiveName(name); err != nil {
		return err
	}
	_, err := a.client.UploadBuffer(ctx, a.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return blobError("upload", name, err)
	}
	logrus.Infof("Archived report %s (%d bytes)", name, len(data))
	return nil
}

func (a *BlobArchive) Retrieve(ctx context.Context, name string) ([]byte, error) {
	if err := checkArchiveName(name); err != nil {
		return nil, err
	}
	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if err != nil {
		return nil, blobError("download", name, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (a *BlobArchive) List(ctx context.Context, prefix string) ([]ArchivedReport, error) {
	reports := []ArchivedReport{}
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			report := ArchivedReport{Name: *item.Name}
			if props := item.Properties; props != nil {
				if props.ContentLength != nil {
					report.Size = *props.ContentLength
				}
				if props.LastModified != nil {
					report.ModifiedAt = *props.LastModified
				}
			}
			reports = append(reports, report)
		}
	}
	newestFirst(reports)
	return reports, nil
}

func (a *BlobArchive) Delete(ctx context.Context, name string) error {
	if err := checkArchiveName(name); err != nil {
		return err
	}
	if _, err := a.client.DeleteBlob(ctx, a.container, name, nil); err != nil {
		return blobError("delete", name, err)
	}
	logrus.Infof("Deleted archived report %s", name)
	return nil
}
