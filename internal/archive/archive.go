// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package archive espelha arquivos commitados pelo server para um bucket S3.
// O espelhamento é best-effort: uma falha de upload é logada e não afeta a
// resposta ao client — o arquivo local continua sendo a cópia primária.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archiver sobe cada arquivo recebido para bucket/prefix/filename.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New cria um archiver usando a cadeia default de credenciais da AWS
// (env, shared config, IAM role).
func New(ctx context.Context, bucket, prefix, region string, logger *slog.Logger) (*S3Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Archive implementa server.Archiver.
func (a *S3Archiver) Archive(ctx context.Context, filePath, filename string) {
	key := path.Join(a.prefix, filename)

	f, err := os.Open(filePath)
	if err != nil {
		a.logger.Error("archive: opening file", "path", filePath, "error", err)
		return
	}
	defer f.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		a.logger.Error("archive: uploading to s3", "bucket", a.bucket, "key", key, "error", err)
		return
	}

	a.logger.Info("archived file to s3", "bucket", a.bucket, "key", key)
}
