package scan

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"tracedis/internal/arch"
	"tracedis/internal/disasm"
	"tracedis/internal/logging"
	tlog "tracedis/internal/tracedis/log"
)

// Region is a named run of code at a virtual address.
type Region struct {
	Name string
	VA   uint64
	Code []byte
}

// Listing is the linear disassembly of one region.
type Listing struct {
	Region      Region
	Insts       disasm.Stream
	Undecodable int
}

// Sections disassembles regions concurrently, at most workers at a time
// (GOMAXPROCS when workers <= 0). Decoders and sym are shared by all
// workers. Results are in region order.
func Sections(ctx context.Context, s *arch.Spec, regions []Region, sym disasm.SymbolResolver, workers int) ([]Listing, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Listing, len(regions))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, reg := range regions {
		g.Go(func() (err error) {
			defer tlog.RecoverPanic("scan "+reg.Name, func() {
				err = fmt.Errorf("scan %s: decoder panic", reg.Name)
			})
			if err := ctx.Err(); err != nil {
				return err
			}
			insts, bad := Linear(s, reg.Code, reg.VA, sym)
			if bad > 0 {
				logging.Default().Debug("region scanned", "region", reg.Name, "insts", len(insts), "undecodable", bad)
			}
			out[i] = Listing{Region: reg, Insts: insts, Undecodable: bad}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
