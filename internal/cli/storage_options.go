package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/editplay/internal/config"
	"github.com/SmitUplenchwar2687/editplay/internal/storage"
)

type storageOptions struct {
	backend               string
	memoryCleanupInterval time.Duration
	redisHost             string
	redisPort             int
	redisPassword         string
	redisDB               int
	redisCluster          bool
	redisClusterNodes     []string
	redisPoolSize         int
	redisMaxRetries       int
	redisDialTimeout      time.Duration
	redisPrefix           string
}

func (o *storageOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "storage", storage.BackendMemory, "storage backend (memory, redis)")
	cmd.Flags().DurationVar(&o.memoryCleanupInterval, "storage-memory-cleanup-interval", time.Minute, "cleanup interval for the memory storage backend")
	cmd.Flags().StringVar(&o.redisHost, "redis-host", "localhost", "redis host (or host:port)")
	cmd.Flags().IntVar(&o.redisPort, "redis-port", 6379, "redis port")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	cmd.Flags().BoolVar(&o.redisCluster, "redis-cluster", false, "enable redis cluster mode")
	cmd.Flags().StringSliceVar(&o.redisClusterNodes, "redis-cluster-nodes", nil, "redis cluster nodes host:port list")
	cmd.Flags().IntVar(&o.redisPoolSize, "redis-pool-size", 20, "redis connection pool size")
	cmd.Flags().IntVar(&o.redisMaxRetries, "redis-max-retries", 3, "redis max retries")
	cmd.Flags().DurationVar(&o.redisDialTimeout, "redis-dial-timeout", 5*time.Second, "redis dial timeout")
	cmd.Flags().StringVar(&o.redisPrefix, "redis-prefix", "editplay:", "prefix for every redis key")
}

// applyConfigIfUnset copies cfg into every option whose flag was not given
// on the command line.
func (o *storageOptions) applyConfigIfUnset(cmd *cobra.Command, cfg config.StorageConfig) {
	if !cmd.Flags().Changed("storage") {
		o.backend = cfg.Backend
	}
	if !cmd.Flags().Changed("redis-host") {
		o.redisHost = cfg.Redis.Host
	}
	if !cmd.Flags().Changed("redis-port") {
		o.redisPort = cfg.Redis.Port
	}
	if !cmd.Flags().Changed("redis-password") {
		o.redisPassword = cfg.Redis.Password
	}
	if !cmd.Flags().Changed("redis-db") {
		o.redisDB = cfg.Redis.DB
	}
	if !cmd.Flags().Changed("redis-cluster") {
		o.redisCluster = cfg.Redis.Cluster
	}
	if !cmd.Flags().Changed("redis-cluster-nodes") {
		o.redisClusterNodes = append([]string(nil), cfg.Redis.ClusterNodes...)
	}
	if !cmd.Flags().Changed("redis-pool-size") {
		o.redisPoolSize = cfg.Redis.PoolSize
	}
	if !cmd.Flags().Changed("redis-max-retries") {
		o.redisMaxRetries = cfg.Redis.MaxRetries
	}
	if !cmd.Flags().Changed("redis-dial-timeout") {
		o.redisDialTimeout = cfg.Redis.DialTimeout
	}
	if !cmd.Flags().Changed("redis-prefix") && cfg.Redis.Prefix != "" {
		o.redisPrefix = cfg.Redis.Prefix
	}
}

func (o *storageOptions) normalize() error {
	switch o.backend {
	case storage.BackendMemory:
		if o.memoryCleanupInterval <= 0 {
			return fmt.Errorf("--storage-memory-cleanup-interval must be positive, got %s", o.memoryCleanupInterval)
		}
		return nil
	case storage.BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)", o.backend, storage.BackendMemory, storage.BackendRedis)
	}

	if o.redisCluster {
		if len(o.redisClusterNodes) == 0 {
			return fmt.Errorf("--redis-cluster requires --redis-cluster-nodes")
		}
		return nil
	}

	host, port, err := normalizeRedisHostPort(o.redisHost, o.redisPort)
	if err != nil {
		return err
	}
	o.redisHost = host
	o.redisPort = port
	return nil
}

func (o *storageOptions) redisConfig() *storage.RedisConfig {
	return &storage.RedisConfig{
		Host:         o.redisHost,
		Port:         o.redisPort,
		Password:     o.redisPassword,
		DB:           o.redisDB,
		Cluster:      o.redisCluster,
		ClusterNodes: append([]string(nil), o.redisClusterNodes...),
		PoolSize:     o.redisPoolSize,
		MaxRetries:   o.redisMaxRetries,
		DialTimeout:  o.redisDialTimeout,
		Prefix:       o.redisPrefix,
	}
}

func normalizeRedisHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid --redis-host value %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in --redis-host %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}
