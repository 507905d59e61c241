package util

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kasmail/kasmail-server/types"
)

// ParseMinerCSV reads miner pool rows in the form address,rank[,active].
// A header row starting with "address" is skipped. Active defaults to true.
func ParseMinerCSV(r io.Reader) ([]*types.MinerAddress, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	miners := []*types.MinerAddress{}
	seen := map[string]bool{}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "address") {
			continue
		}
		if len(record) < 2 || len(record) > 3 {
			return nil, fmt.Errorf("line %d: expected address,rank[,active]: %w", line, types.ErrBadRequest)
		}
		address := strings.TrimSpace(record[0])
		if !types.IsKaspaAddress(address) {
			return nil, fmt.Errorf("line %d: %w", line, types.ErrInvalidAddress)
		}
		if seen[address] {
			return nil, fmt.Errorf("line %d: duplicate address %s: %w", line, address, types.ErrBadRequest)
		}
		seen[address] = true
		rank, rErr := strconv.Atoi(strings.TrimSpace(record[1]))
		if rErr != nil || rank < 1 {
			return nil, fmt.Errorf("line %d: invalid rank %q: %w", line, record[1], types.ErrBadRequest)
		}
		active := true
		if len(record) == 3 {
			active, rErr = strconv.ParseBool(strings.TrimSpace(record[2]))
			if rErr != nil {
				return nil, fmt.Errorf("line %d: invalid active flag %q: %w", line, record[2], types.ErrBadRequest)
			}
		}
		miners = append(miners, &types.MinerAddress{
			Address:  address,
			Rank:     rank,
			IsActive: active,
		})
	}
	return miners, nil
}
