package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	ReadHost       string
	WriteHost      string
	ReadPort       string
	WritePort      string
	DBName         string
	Username       string
	Password       string
	MaxConnections int
}

// ReadWriteClient splits traffic between the primary and a read replica.
// Ownership checks that precede a write always go to the write pool.
type ReadWriteClient struct {
	readPool  *pgxpool.Pool
	writePool *pgxpool.Pool
}

func NewReadWriteClient(cfg Config) (*ReadWriteClient, error) {
	writePool, err := NewPostgresClient(cfg.WriteHost, cfg.WritePort, cfg.DBName, cfg.Username, cfg.Password, cfg.MaxConnections)
	if err != nil {
		return nil, err
	}

	// Sem réplica configurada, leitura e escrita compartilham o mesmo pool.
	if cfg.ReadHost == "" || (cfg.ReadHost == cfg.WriteHost && cfg.ReadPort == cfg.WritePort) {
		return &ReadWriteClient{readPool: writePool, writePool: writePool}, nil
	}

	readPool, err := NewPostgresClient(cfg.ReadHost, cfg.ReadPort, cfg.DBName, cfg.Username, cfg.Password, cfg.MaxConnections)
	if err != nil {
		writePool.Close()
		return nil, err
	}

	return &ReadWriteClient{
		readPool:  readPool,
		writePool: writePool,
	}, nil
}

func (rwc *ReadWriteClient) GetReadPool() *pgxpool.Pool {
	return rwc.readPool
}

func (rwc *ReadWriteClient) GetWritePool() *pgxpool.Pool {
	return rwc.writePool
}

func (rwc *ReadWriteClient) Ping(ctx context.Context) error {
	return errors.Join(rwc.writePool.Ping(ctx), rwc.readPool.Ping(ctx))
}

func (rwc *ReadWriteClient) Close() {
	if rwc.readPool != rwc.writePool {
		rwc.readPool.Close()
	}
	rwc.writePool.Close()
}
