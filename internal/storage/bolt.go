package storage

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/boltdb/bolt"
	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/crypto"
	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/klauspost/compress/gzip"
)

var (
	ErrNoRecoveryData = errors.New("no recovery data persisted yet")
	ErrRecoveryDecode = errors.New("failed to decode persisted recovery data")
	ErrRecoveryEncode = errors.New("failed to encode recovery data for persistence")
)

var (
	bucketName  = []byte("recovery")
	recoveryKey = []byte("latest")
)

// persistedValidator is the gob-friendly form of a validator: *ecdsa.
// PublicKey carries an unexported concrete Curve implementation gob cannot
// encode, so the raw uncompressed key bytes are persisted instead.
type persistedValidator struct {
	Author      validatorset.Author
	PublicKey   []byte
	VotingPower uint64
}

type persistedRecoveryData struct {
	Epoch      uint64
	Validators []persistedValidator
	RootBlock  consensustypes.Block
	LastVote   *consensustypes.VoteMsg
}

// BoltStorage persists RecoveryData as a single gzip-compressed gob blob
// in a BoltDB bucket under a fixed "latest" key; each Persist overwrites the
// previous snapshot (only the most recent one is needed per spec §3).
type BoltStorage struct {
	db *bolt.DB
}

// OpenBoltStorage opens (creating if absent) a BoltDB file at path.
func OpenBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recovery bucket: %w", err)
	}
	return &BoltStorage{db: db}, nil
}

// Close releases the underlying BoltDB file handle.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// Persist writes a new RecoveryData snapshot, overwriting any prior one.
func (s *BoltStorage) Persist(data RecoveryData) error {
	persisted := persistedRecoveryData{
		Epoch:     data.Epoch,
		RootBlock: data.RootBlock,
		LastVote:  data.LastVote,
	}
	for _, v := range data.Validators {
		raw, err := crypto.SerializePublicKeyToBytes(v.PublicKey)
		if err != nil {
			return fmt.Errorf("%w: validator %s: %v", ErrRecoveryEncode, v.Author, err)
		}
		persisted.Validators = append(persisted.Validators, persistedValidator{
			Author: v.Author, PublicKey: raw, VotingPower: v.VotingPower,
		})
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(persisted); err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryEncode, err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryEncode, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryEncode, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(recoveryKey, compressed.Bytes())
	})
}

// Start implements PersistentStorage, returning the most recently persisted
// RecoveryData.
func (s *BoltStorage) Start() (RecoveryData, error) {
	var compressed []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(recoveryKey)
		if v == nil {
			return ErrNoRecoveryData
		}
		compressed = append(compressed, v...)
		return nil
	})
	if err != nil {
		return RecoveryData{}, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return RecoveryData{}, fmt.Errorf("%w: %v", ErrRecoveryDecode, err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return RecoveryData{}, fmt.Errorf("%w: %v", ErrRecoveryDecode, err)
	}

	var persisted persistedRecoveryData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&persisted); err != nil {
		return RecoveryData{}, fmt.Errorf("%w: %v", ErrRecoveryDecode, err)
	}

	data := RecoveryData{Epoch: persisted.Epoch, RootBlock: persisted.RootBlock, LastVote: persisted.LastVote}
	for _, pv := range persisted.Validators {
		pub, err := crypto.DeserializePublicKeyFromBytes(pv.PublicKey)
		if err != nil {
			return RecoveryData{}, fmt.Errorf("%w: validator %s: %v", ErrRecoveryDecode, pv.Author, err)
		}
		data.Validators = append(data.Validators, validatorset.ValidatorInfo{
			Author: pv.Author, PublicKey: pub, VotingPower: pv.VotingPower,
		})
	}
	return data, nil
}
