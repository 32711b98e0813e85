package lockfile

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/terrarium-dev/terrarium/internal/platform"
)

// EnvironmentHash is the fingerprint of a platform's locked package set.
// It is compared against the hash persisted in the environment record to
// decide whether an installed prefix already matches the lock file.
type EnvironmentHash string

// HashEnvironment computes the fingerprint of an environment's package set
// for one platform by streaming over the packages in lock-file stored
// order.
//
// Per package the digest consumes the location identifier, then for conda
// packages the strongest available integrity digest (sha256 preferred over
// md5, nothing when neither is recorded), and for PyPI packages the
// editable flag and extras selection.
//
// The digest is order sensitive: reordering an otherwise identical package
// list produces a different hash.
func HashEnvironment(env *Environment, p platform.Platform) EnvironmentHash {
	hasher := blake3.New()

	writeField := func(field string) {
		var length [8]byte
		binary.LittleEndian.PutUint64(length[:], uint64(len(field)))
		_, _ = hasher.Write(length[:])
		_, _ = hasher.WriteString(field)
	}

	for _, pkg := range env.PackagesFor(p) {
		writeField(pkg.Location)

		switch pkg.Kind {
		case KindConda:
			if pkg.Sha256 != "" {
				writeField(pkg.Sha256)
			} else if pkg.Md5 != "" {
				writeField(pkg.Md5)
			}
		case KindPyPi:
			if pkg.Editable {
				_, _ = hasher.Write([]byte{1})
			} else {
				_, _ = hasher.Write([]byte{0})
			}
			for _, extra := range pkg.Extras {
				writeField(extra)
			}
		}
	}

	return EnvironmentHash(fmt.Sprintf("%x", hasher.Sum(nil)))
}
