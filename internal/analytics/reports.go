package analytics

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// WriteTopBalances writes TopBalances.csv: address,balance,days.
func WriteTopBalances(path string, rows []TopBalanceRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"address", "balance", "days"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Address,
			strconv.FormatInt(r.BalanceSats, 10),
			strconv.FormatUint(uint64(r.DaysInactive), 10),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteDailyStatistics writes Transactions.csv: one row per day bucket with
// the core transaction/UTXO-age/dust/zombie counters.
func WriteDailyStatistics(path string, buckets []DailyBucket) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"day", "transactions", "blocks", "inputCount", "outputCount",
		"inputValue", "outputValue", "maxInputScript", "maxOutputScript",
		"dustCount", "zombieCount",
	}
	for i := range [10]struct{}{} {
		header = append(header, fmt.Sprintf("utxoAge%d", i))
	}
	for i := range [10]struct{}{} {
		// Live (still-unspent) UTXO age-band snapshot, taken at this day's
		// closing boundary by walking the residual map per spec §4.J.
		header = append(header, fmt.Sprintf("liveUtxoCount%d", i), fmt.Sprintf("liveUtxoValue%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, b := range buckets {
		rec := []string{
			strconv.FormatInt(b.Day, 10),
			strconv.FormatUint(b.Transactions, 10),
			strconv.FormatUint(b.Blocks, 10),
			strconv.FormatUint(b.InputCount, 10),
			strconv.FormatUint(b.OutputCount, 10),
			strconv.FormatInt(b.InputValue, 10),
			strconv.FormatInt(b.OutputValue, 10),
			strconv.FormatUint(uint64(b.MaxInputCount), 10),
			strconv.FormatUint(uint64(b.MaxOutputCount), 10),
			strconv.FormatUint(b.DustCount, 10),
			strconv.FormatUint(b.ZombieCount, 10),
		}
		for _, v := range b.UTXOAgeHistogram {
			rec = append(rec, strconv.FormatUint(v, 10))
		}
		for i := range b.LiveUTXOCount {
			rec = append(rec,
				strconv.FormatUint(b.LiveUTXOCount[i], 10),
				strconv.FormatInt(b.LiveUTXOValue[i], 10),
			)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteValueDistribution writes ValueDistribution.csv: per-day value-band
// counts across the 12 log-spaced bands.
func WriteValueDistribution(path string, buckets []DailyBucket) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"day"}
	for i := range [12]struct{}{} {
		header = append(header, fmt.Sprintf("band%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, b := range buckets {
		rec := []string{strconv.FormatInt(b.Day, 10)}
		for _, v := range b.ValueHistogram {
			rec = append(rec, strconv.FormatUint(v, 10))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteZombieReport writes ZombieReport.csv:
// spendingDate,producingDate,address,ageDays,value,score.
func WriteZombieReport(path string, rows []ZombieRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"spendingDate", "producingDate", "address", "ageDays", "value", "score"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.SpendingDate,
			r.ProducingDate,
			r.Address,
			strconv.FormatInt(r.AgeDays, 10),
			strconv.FormatInt(r.ValueSats, 10),
			strconv.FormatFloat(r.Score, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Error()
}
