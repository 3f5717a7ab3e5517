package evm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pendergraft/netprofile/internal/chains"
)

// DeriveAccounts derives count consecutive addresses starting at index
// below the BIP-32 path prefix (e.g. m/44'/60'/0'/0/). The mnemonic never
// appears in returned errors.
func DeriveAccounts(mnemonic, pathPrefix string, index, count int64) ([]chains.Account, error) {
	if index < 0 || count < 1 {
		return nil, fmt.Errorf("invalid address range: index %d, count %d", index, count)
	}
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}

	if !strings.HasSuffix(pathPrefix, "/") {
		pathPrefix += "/"
	}
	out := make([]chains.Account, 0, count)
	for i := index; i < index+count; i++ {
		path := pathPrefix + strconv.FormatInt(i, 10)
		addr, err := deriveAddress(master, path)
		if err != nil {
			return nil, err
		}
		out = append(out, chains.Account{Index: i, Path: path, Address: addr.Hex()})
	}
	return out, nil
}

func deriveAddress(master *hdkeychain.ExtendedKey, path string) (common.Address, error) {
	components, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid derivation path %s: %w", path, err)
	}
	key := master
	for _, c := range components {
		key, err = key.Derive(c)
		if err != nil {
			return common.Address{}, fmt.Errorf("deriving %s: %w", path, err)
		}
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("deriving %s: %w", path, err)
	}
	ecdsaPub, err := crypto.UnmarshalPubkey(pub.SerializeUncompressed())
	if err != nil {
		return common.Address{}, fmt.Errorf("deriving %s: %w", path, err)
	}
	return crypto.PubkeyToAddress(*ecdsaPub), nil
}
