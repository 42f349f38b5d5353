package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/probelab/polymigrate/logger"
)

const folderMimeType = "application/vnd.google-apps.folder"

// GDriveProvider stores objects as files in a Google Drive folder
// tree, authenticated with a service account key file. A namespace
// maps to a folder path under the configured root folder; folders are
// created on demand during writes.
type GDriveProvider struct {
	svc          *drive.Service
	rootFolderID string
}

func NewGDriveProvider(ctx context.Context, credentialsFile, rootFolderID string) (*GDriveProvider, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &GDriveProvider{svc: svc, rootFolderID: rootFolderID}, nil
}

// escapeQuery escapes single quotes for Drive query strings.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

// findChild returns the id of a child with the given name under
// parentID, or "" when absent. folderOnly restricts the match to
// folders.
func (p *GDriveProvider) findChild(ctx context.Context, parentID, name string, folderOnly bool) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false",
		escapeQuery(name), parentID)
	if folderOnly {
		query += fmt.Sprintf(" and mimeType='%s'", folderMimeType)
	}
	list, err := p.svc.Files.List().Context(ctx).
		Q(query).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// resolveFolder walks the namespace path segment by segment. With
// create set, missing folders are created; otherwise "" is returned as
// soon as a segment is absent.
func (p *GDriveProvider) resolveFolder(ctx context.Context, namespace string, create bool) (string, error) {
	parentID := p.rootFolderID
	for _, segment := range strings.Split(strings.Trim(namespace, "/"), "/") {
		if segment == "" {
			continue
		}
		id, err := p.findChild(ctx, parentID, segment, true)
		if err != nil {
			return "", err
		}
		if id == "" {
			if !create {
				return "", nil
			}
			folder, err := p.svc.Files.Create(&drive.File{
				Name:     segment,
				MimeType: folderMimeType,
				Parents:  []string{parentID},
			}).Context(ctx).Fields("id").SupportsAllDrives(true).Do()
			if err != nil {
				return "", err
			}
			id = folder.Id
		}
		parentID = id
	}
	return parentID, nil
}

func (p *GDriveProvider) PutObject(ctx context.Context, namespace, name string, content []byte) error {
	folderID, err := p.resolveFolder(ctx, namespace, true)
	if err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}

	existingID, err := p.findChild(ctx, folderID, name, false)
	if err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}

	if existingID != "" {
		// Overwrite in place so the file id stays stable.
		_, err = p.svc.Files.Update(existingID, &drive.File{}).Context(ctx).
			Media(bytes.NewReader(content)).
			SupportsAllDrives(true).
			Do()
	} else {
		_, err = p.svc.Files.Create(&drive.File{
			Name:    name,
			Parents: []string{folderID},
		}).Context(ctx).
			Media(bytes.NewReader(content)).
			Fields("id").
			SupportsAllDrives(true).
			Do()
	}
	if err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}
	return nil
}

func (p *GDriveProvider) GetObject(ctx context.Context, namespace, name string) ([]byte, error) {
	folderID, err := p.resolveFolder(ctx, namespace, false)
	if err != nil || folderID == "" {
		return nil, &Error{Op: "get", Namespace: namespace,
			Err: fmt.Errorf("namespace not found: %w", err)}
	}
	fileID, err := p.findChild(ctx, folderID, name, false)
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	if fileID == "" {
		return nil, &Error{Op: "get", Namespace: namespace,
			Err: fmt.Errorf("object %s not found", name)}
	}

	resp, err := p.svc.Files.Get(fileID).Context(ctx).SupportsAllDrives(true).Download()
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	return content, nil
}

func (p *GDriveProvider) ListObjects(ctx context.Context, namespace string) ([]string, error) {
	folderID, err := p.resolveFolder(ctx, namespace, false)
	if err != nil {
		return nil, &Error{Op: "list", Namespace: namespace, Err: err}
	}
	if folderID == "" {
		return nil, nil
	}

	var names []string
	query := fmt.Sprintf("'%s' in parents and mimeType!='%s' and trashed=false",
		folderID, folderMimeType)
	pageToken := ""
	for {
		call := p.svc.Files.List().Context(ctx).
			Q(query).
			Fields("nextPageToken, files(id, name)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, &Error{Op: "list", Namespace: namespace, Err: err}
		}
		for _, f := range list.Files {
			names = append(names, f.Name)
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}
	return names, nil
}

func (p *GDriveProvider) DeleteObject(ctx context.Context, namespace, name string) error {
	folderID, err := p.resolveFolder(ctx, namespace, false)
	if err != nil {
		return &Error{Op: "delete", Namespace: namespace, FailedObjects: []string{name}, Err: err}
	}
	if folderID == "" {
		return nil
	}
	fileID, err := p.findChild(ctx, folderID, name, false)
	if err != nil {
		return &Error{Op: "delete", Namespace: namespace, FailedObjects: []string{name}, Err: err}
	}
	if fileID == "" {
		return nil
	}
	if err := p.svc.Files.Delete(fileID).Context(ctx).SupportsAllDrives(true).Do(); err != nil {
		return &Error{Op: "delete", Namespace: namespace, FailedObjects: []string{name}, Err: err}
	}
	return nil
}

// CleanNamespace deletes the namespace folder with all its contents.
func (p *GDriveProvider) CleanNamespace(ctx context.Context, namespace string) error {
	folderID, err := p.resolveFolder(ctx, namespace, false)
	if err != nil {
		return &Error{Op: "clean", Namespace: namespace, Err: err}
	}
	if folderID == "" {
		logger.FromContext(ctx).Debug("namespace absent, nothing to clean",
			"namespace", namespace, "backend", "gdrive")
		return nil
	}
	if err := p.svc.Files.Delete(folderID).Context(ctx).SupportsAllDrives(true).Do(); err != nil {
		left, _ := p.ListObjects(ctx, namespace)
		return &Error{Op: "clean", Namespace: namespace, FailedObjects: left, Err: err}
	}

	logger.FromContext(ctx).Info("cleaned storage namespace",
		"namespace", namespace, "backend", "gdrive")
	return nil
}
