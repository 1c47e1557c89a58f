/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package etcd implements the persistence store on an etcd cluster, for
// deployments that run more than one broker replica. Every operation is
// guarded by a short-lived named lock so concurrent replicas never
// interleave a read-modify-write on the same record.
package etcd

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence"
)

const (
	keyPrefix  = "/broker/records/"
	lockPrefix = "/broker/locks/"

	lockTTLSeconds = 5
	opTimeout      = 10 * time.Second
)

type store struct {
	client *clientv3.Client
}

// NewStore connects to the etcd cluster at the given endpoints.
func NewStore(endpoints []string) (persistence.Store, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	klog.Infof("connected etcd store at %v", endpoints)
	return &store{client: client}, nil
}

// withLock runs fn while holding the named lock. The lock lease expires
// after lockTTLSeconds, so a crashed replica cannot wedge the store.
func (s *store) withLock(name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	session, err := concurrency.NewSession(s.client, concurrency.WithTTL(lockTTLSeconds))
	if err != nil {
		return err
	}
	defer session.Close()

	mutex := concurrency.NewMutex(session, lockPrefix+name)
	if err = mutex.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := mutex.Unlock(context.Background()); err != nil {
			klog.ErrorS(err, "failed to release etcd lock", "name", name)
		}
	}()
	return fn(ctx)
}

func (s *store) Put(key string, value []byte) error {
	return s.withLock("put", func(ctx context.Context) error {
		_, err := s.client.Put(ctx, keyPrefix+key, string(value))
		return err
	})
}

func (s *store) Get(key string) ([]byte, error) {
	var blob []byte
	err := s.withLock("get", func(ctx context.Context) error {
		rsp, err := s.client.Get(ctx, keyPrefix+key)
		if err != nil {
			return err
		}
		if len(rsp.Kvs) > 0 {
			blob = rsp.Kvs[0].Value
		}
		return nil
	})
	return blob, err
}

func (s *store) Delete(key string) error {
	return s.withLock("delete", func(ctx context.Context) error {
		_, err := s.client.Delete(ctx, keyPrefix+key)
		return err
	})
}

func (s *store) DeleteAll(prefix string) error {
	return s.withLock("delete_all", func(ctx context.Context) error {
		_, err := s.client.Delete(ctx, keyPrefix+prefix, clientv3.WithPrefix())
		return err
	})
}

func (s *store) GetAll(prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := s.withLock("get_all", func(ctx context.Context) error {
		rsp, err := s.client.Get(ctx, keyPrefix+prefix, clientv3.WithPrefix())
		if err != nil {
			return err
		}
		for _, kv := range rsp.Kvs {
			result[string(kv.Key)[len(keyPrefix):]] = kv.Value
		}
		return nil
	})
	return result, err
}

func (s *store) Close() error {
	return s.client.Close()
}
