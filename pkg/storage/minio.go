// Package storage 提供了与对象存储服务（如 MinIO）交互的功能，用于归档重建任务报告。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"problem-search-go/internal/config"
	"problem-search-go/internal/model"
	"problem-search-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportStore 把重建任务报告以 JSON 对象的形式保存到 MinIO。
type ReportStore struct {
	client *minio.Client
	bucket string
}

// NewReportStore 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewReportStore(ctx context.Context, cfg config.MinIOConfig) (*ReportStore, error) {
	// 1. 初始化 MinIO 客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	bucketName := cfg.BucketName
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	}

	return &ReportStore{client: client, bucket: bucketName}, nil
}

// ReportObjectName 返回报告的对象名，例如 reindex/20261018T120000Z-domain_system.json。
func ReportObjectName(report model.ReindexReport) string {
	scope := strings.NewReplacer(":", "_", "/", "_").Replace(report.Scope)
	return fmt.Sprintf("reindex/%s-%s.json", report.StartedAt.UTC().Format("20060102T150405Z"), scope)
}

// ArchiveReport 上传报告并返回对象名。
func (s *ReportStore) ArchiveReport(ctx context.Context, report model.ReindexReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	objectName := ReportObjectName(report)
	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("上传任务报告失败: %w", err)
	}
	log.Infof("任务报告已归档: %s/%s", s.bucket, objectName)
	return objectName, nil
}

// GetPresignedURL 为已归档的报告生成临时下载链接。
func (s *ReportStore) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		log.Errorf("生成预签名 URL 失败: %s", err)
		return "", err
	}
	return presignedURL.String(), nil
}
