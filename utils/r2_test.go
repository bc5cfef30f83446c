package utils

import (
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"
)

func TestNewR2StoreDisabled(t *testing.T) {
	store, err := NewR2Store(context.Background(), R2Config{Bucket: "icons"})
	if err != nil || store != nil {
		t.Fatalf("NewR2Store = %v, %v; want nil, nil", store, err)
	}
}

func TestUploadIconRejectsBeforeUpload(t *testing.T) {
	store := &R2Store{bucket: "icons", cdnBaseURL: "https://cdn.test"}

	big := &multipart.FileHeader{Filename: "a.png", Size: maxIconBytes + 1}
	if _, err := store.UploadIcon(context.Background(), big, "shop/a.png"); err == nil {
		t.Fatal("oversized icon accepted")
	}

	text := &multipart.FileHeader{
		Filename: "a.txt",
		Size:     10,
		Header:   textproto.MIMEHeader{"Content-Type": {"text/plain"}},
	}
	if _, err := store.UploadIcon(context.Background(), text, "shop/a.txt"); err == nil {
		t.Fatal("non-image icon accepted")
	}
}
