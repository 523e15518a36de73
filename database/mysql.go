/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/superkkt/ofdriver/network"

	"github.com/go-sql-driver/mysql"
	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	maxDeadlockRetry = 5

	deadlockErrCode uint16 = 1213

	clusterDialerNetwork = "cluster"
	defaultCacheSize     = 4096
)

var (
	logger = logging.MustGetLogger("database")

	maxIdleConn = runtime.NumCPU()
	maxOpenConn = maxIdleConn * 2

	ErrUnknownPartition = errors.New("unknown partition")
)

// MySQL is a network.Store that keeps the nodes in the node table. The
// value of a row is the CBOR encoding of the node.
//
//	CREATE TABLE node (
//		partition_id TINYINT UNSIGNED NOT NULL,
//		path VARCHAR(255) NOT NULL,
//		value MEDIUMBLOB NOT NULL,
//		PRIMARY KEY (partition_id, path)
//	);
type MySQL struct {
	db *sql.DB
	// cacheKey -> encoded node
	cache *lru.Cache
}

type cacheKey struct {
	partition network.Partition
	path      string
}

func NewMySQL() (*MySQL, error) {
	addr := viper.GetString("mysql.addr")
	if err := validateClusterAddr(addr); err != nil {
		return nil, err
	}
	// Register the custom dialer.
	mysql.RegisterDialContext(clusterDialerNetwork, clusterDialer)

	param := "readTimeout=1m&writeTimeout=1m&parseTime=true&loc=Local&maxAllowedPacket=0"
	dsn := fmt.Sprintf("%v:%v@%v(%v)/%v?%v", viper.GetString("mysql.username"), viper.GetString("mysql.password"), clusterDialerNetwork, addr, viper.GetString("mysql.name"), param)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	// Make sure that all the connections are established to a same node, instead of distributing them into multiple nodes.
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, err
	}

	size := viper.GetInt("mysql.cache_size")
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &MySQL{db: db, cache: cache}, nil
}

func validateClusterAddr(addr string) error {
	if len(addr) == 0 {
		return errors.New("empty cluster address")
	}

	token := strings.Split(strings.Replace(addr, " ", "", -1), ",")
	for _, v := range token {
		if _, err := net.ResolveTCPAddr("tcp", v); err != nil {
			return fmt.Errorf("invalid cluster address: %v: %v", v, err)
		}
	}

	return nil
}

// clusterDialer tries to sequentially connect to each hosts from the address in the
// order of their appearance and then returns the first successfully connected one.
func clusterDialer(ctx context.Context, addr string) (net.Conn, error) {
	token := strings.Split(strings.Replace(addr, " ", "", -1), ",")

	d := net.Dialer{Timeout: 5 * time.Second}
	for _, v := range token {
		logger.Debugf("dialing to %v", v)
		conn, err := d.DialContext(ctx, "tcp", v)
		if err == nil {
			logger.Debugf("successfully connected to %v", v)
			return conn, nil
		}
		logger.Errorf("failed to dial: %v", err)
	}

	return nil, errors.New("failed to dial: no available cluster node")
}

func isDeadlock(err error) bool {
	e, ok := errors.Cause(err).(*mysql.MySQLError)
	if !ok {
		return false
	}

	return e.Number == deadlockErrCode
}

func (r *MySQL) query(ctx context.Context, f func(*sql.Tx) error) error {
	deadlockRetry := 0

	for {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		err = f(tx)
		if err == nil {
			// Commit also may raise an error.
			err = tx.Commit()
			if err == nil {
				return nil
			}
		}
		tx.Rollback()

		if !isDeadlock(err) || deadlockRetry >= maxDeadlockRetry {
			return err
		}
		// A deadlock occurrs. Re-execute the queries again after some sleep!
		logger.Infof("query failed due to a deadlock: caller=%v", caller())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(rand.Int63n(500)) * time.Millisecond):
		}
		deadlockRetry++
	}
}

func caller() string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}

	f := runtime.FuncForPC(pc)
	if f == nil {
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("%v (%v:%v)", f.Name(), file, line)
}

func validatePartition(p network.Partition) error {
	switch p {
	case network.Configured, network.Operational:
		return nil
	default:
		return ErrUnknownPartition
	}
}

func (r *MySQL) Read(ctx context.Context, p network.Partition, path string) (node network.Node, ok bool, err error) {
	if err := validatePartition(p); err != nil {
		return network.Node{}, false, err
	}

	key := cacheKey{partition: p, path: path}
	if v, ok := r.cache.Get(key); ok {
		node, err := decodeNode(v.([]byte))
		if err != nil {
			return network.Node{}, false, err
		}
		return node, true, nil
	}

	var data []byte
	f := func(tx *sql.Tx) error {
		row, err := tx.QueryContext(ctx, "SELECT value FROM node WHERE partition_id = ? AND path = ?", int(p), path)
		if err != nil {
			return err
		}
		defer row.Close()

		// Initialize the result variables.
		data = nil
		ok = false
		if !row.Next() {
			return row.Err()
		}
		if err := row.Scan(&data); err != nil {
			return err
		}
		ok = true

		return row.Err()
	}
	if err = r.query(ctx, f); err != nil {
		return network.Node{}, false, errors.Wrapf(err, "failed to query the %v node: path=%v", p, path)
	}
	if !ok {
		return network.Node{}, false, nil
	}

	node, err = decodeNode(data)
	if err != nil {
		return network.Node{}, false, err
	}
	r.cache.Add(key, data)

	return node, true, nil
}

func (r *MySQL) Write(ctx context.Context, p network.Partition, path string, node network.Node) error {
	if err := validatePartition(p); err != nil {
		return err
	}
	data, err := encodeNode(node)
	if err != nil {
		return err
	}

	f := func(tx *sql.Tx) error {
		qry := "INSERT INTO node (partition_id, path, value) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)"
		_, err := tx.ExecContext(ctx, qry, int(p), path, data)
		return err
	}
	key := cacheKey{partition: p, path: path}
	if err := r.query(ctx, f); err != nil {
		// The row may or may not have been changed.
		r.cache.Remove(key)
		return errors.Wrapf(err, "failed to write the %v node: path=%v", p, path)
	}
	r.cache.Add(key, data)

	return nil
}

func (r *MySQL) Delete(ctx context.Context, p network.Partition, path string) error {
	if err := validatePartition(p); err != nil {
		return err
	}

	f := func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM node WHERE partition_id = ? AND path = ?", int(p), path)
		return err
	}
	err := r.query(ctx, f)
	r.cache.Remove(cacheKey{partition: p, path: path})
	if err != nil {
		return errors.Wrapf(err, "failed to delete the %v node: path=%v", p, path)
	}

	return nil
}

func (r *MySQL) Close() error {
	r.cache.Purge()
	return r.db.Close()
}
