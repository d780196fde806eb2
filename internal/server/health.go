package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 5 * time.Second

type dbPinger interface {
	Ping(ctx context.Context) error
}

type bucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type readinessCheck struct {
	component string
	check     func(ctx context.Context) error
}

func readinessChecks(deps Dependencies) []readinessCheck {
	var checks []readinessCheck
	if deps.DB != nil {
		checks = append(checks, readinessCheck{"postgres", deps.DB.Ping})
	}
	if deps.ObjectStore != nil {
		bucket := deps.Config.MinIO.Bucket
		checks = append(checks, readinessCheck{"minio", func(ctx context.Context) error {
			exists, err := deps.ObjectStore.BucketExists(ctx, bucket)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("bucket %q missing", bucket)
			}
			return nil
		}})
	}
	if deps.Redis != nil {
		checks = append(checks, readinessCheck{"redis", func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}})
	}
	return checks
}

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	checks := readinessChecks(deps)

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		for _, rc := range checks {
			if err := rc.check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": rc.component,
					"error":     err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
