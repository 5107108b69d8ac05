package cli

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/crypto"
	"github.com/empower1/epochcore/internal/storage"
	"github.com/empower1/epochcore/internal/validatorset"
)

// genesisValidator is one committee member as named in a genesis manifest.
type genesisValidator struct {
	Address       validatorset.Author `json:"address"`
	PublicKeyPath string              `json:"public_key_pem_path"`
	VotingPower   uint64              `json:"voting_power"`
}

// genesisManifest is the one-time bootstrap document an operator hands to
// the very first node of a committee. It has no bearing on the core's
// runtime config (spec §6: "no files ... are part of this core") — it only
// seeds storage.RecoveryData the first time PersistentStorage.start()
// reports ErrNoRecoveryData.
type genesisManifest struct {
	Epoch      uint64             `json:"epoch"`
	Validators []genesisValidator `json:"validators"`
}

func loadGenesisManifest(path string) (storage.RecoveryData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return storage.RecoveryData{}, fmt.Errorf("reading genesis manifest %s: %w", path, err)
	}
	var manifest genesisManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return storage.RecoveryData{}, fmt.Errorf("parsing genesis manifest %s: %w", path, err)
	}
	if len(manifest.Validators) == 0 {
		return storage.RecoveryData{}, fmt.Errorf("genesis manifest %s names no validators", path)
	}

	validators := make([]validatorset.ValidatorInfo, 0, len(manifest.Validators))
	for _, v := range manifest.Validators {
		pub, err := crypto.LoadPublicKeyPEM(v.PublicKeyPath)
		if err != nil {
			return storage.RecoveryData{}, fmt.Errorf("loading public key for validator %s: %w", v.Address, err)
		}
		power := v.VotingPower
		if power == 0 {
			power = 1
		}
		validators = append(validators, validatorset.ValidatorInfo{Author: v.Address, PublicKey: pub, VotingPower: power})
	}

	return storage.RecoveryData{
		Epoch:      manifest.Epoch,
		Validators: validators,
	}, nil
}

// genesisLedgerInfo builds an unsigned placeholder LedgerInfoWithSignatures
// to seed the state computer at startup. It carries no quorum signatures:
// it is never verified against a trusted verifier itself, only ever synced
// to and superseded by the first real epoch-change proof.
func genesisLedgerInfo(recovery storage.RecoveryData) consensustypes.LedgerInfoWithSignatures {
	return consensustypes.LedgerInfoWithSignatures{
		Info: consensustypes.LedgerInfo{
			Epoch:       recovery.Epoch,
			RootBlockID: recovery.RootBlock.ID,
		},
		Signatures: map[validatorset.Author][]byte{},
	}
}

// loadOrGenerateIdentity loads the node's ECDSA private key from keyPath,
// generating and persisting a fresh one if the file does not yet exist.
func loadOrGenerateIdentity(keyPath string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(keyPath); err == nil {
		return crypto.LoadPrivateKeyPEM(keyPath, nil)
	}
	priv, err := crypto.GenerateECDSAKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating validator identity: %w", err)
	}
	if err := crypto.SavePrivateKeyPEM(priv, keyPath, nil); err != nil {
		return nil, fmt.Errorf("persisting validator identity to %s: %w", keyPath, err)
	}
	return priv, nil
}
