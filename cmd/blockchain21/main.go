// Command blockchain21 is the CLI front end for the offline blockchain
// analyzer: it scans raw blk?????.dat files, builds the two-pass index, and
// runs the analytics/report engine.
//
// Grounded on original_source/main.cpp's driver loop (scan → build chain →
// addBlock per block → buildPublicKeyDatabase), restated as cobra
// subcommands per SPEC_FULL.md §8 instead of boolean flags.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jratcliff63367/blockchain21/internal/analytics"
	"github.com/jratcliff63367/blockchain21/internal/chainparse"
	"github.com/jratcliff63367/blockchain21/internal/index"
	"github.com/jratcliff63367/blockchain21/internal/logging"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/jratcliff63367/blockchain21/internal/records"
	"github.com/jratcliff63367/blockchain21/internal/scan"
	"github.com/jratcliff63367/blockchain21/internal/script"
	"github.com/spf13/cobra"
)

const (
	txFileName      = "TransactionFile.bin"
	addrFileName    = "PublicKeys.bin"
	recordsFileName = "PublicKeyRecords.bin"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var maxBlocks uint32
	var textLen int
	var outDir string

	root := &cobra.Command{
		Use:   "blockchain21",
		Short: "Offline Bitcoin blockchain analyzer",
	}

	scanCmd := &cobra.Command{
		Use:   "scan <datadir>",
		Short: "Scan blk*.dat files, build the chain, and run the two-pass indexer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(args[0], maxBlocks, textLen, resolveOutDir(outDir, args[0]))
		},
	}
	scanCmd.Flags().Uint32Var(&maxBlocks, "max-blocks", 10_000_000, "cap the number of blocks scanned")
	scanCmd.Flags().IntVar(&textLen, "text", 0, "enable ASCII text extraction at minimum run length N (0 disables)")
	scanCmd.Flags().StringVar(&outDir, "out", "", "directory for persisted files and reports (default: datadir)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <datadir>",
		Short: "Skip scanning; run analytics reports from existing persisted files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(resolveOutDir(outDir, args[0]))
		},
	}
	analyzeCmd.Flags().StringVar(&outDir, "out", "", "directory containing persisted files (default: datadir)")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild <datadir>",
		Short: "Re-run pass 2 (the per-address record builder) only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(resolveOutDir(outDir, args[0]))
		},
	}
	rebuildCmd.Flags().StringVar(&outDir, "out", "", "directory containing persisted files (default: datadir)")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Post-hoc inspection helpers that supplement the bulk pipeline",
	}
	inspectScriptCmd := &cobra.Command{
		Use:   "script <hex>",
		Short: "Classify and disassemble a single scriptPubKey hex string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspectScript(cmd.OutOrStdout(), args[0])
		},
	}
	inspectCmd.AddCommand(inspectScriptCmd)

	root.AddCommand(scanCmd, analyzeCmd, rebuildCmd, inspectCmd)
	return root
}

func runInspectScript(w io.Writer, hexScript string) error {
	raw, err := hex.DecodeString(hexScript)
	if err != nil {
		return fmt.Errorf("decoding script hex: %w", err)
	}
	out := script.Classify(0, raw)
	fmt.Fprintf(w, "keyType:    %s\n", out.KeyType)
	fmt.Fprintf(w, "asciiAddr:  %s\n", out.AsciiAddress)
	if out.Warning {
		fmt.Fprintln(w, "warning:    classifier fell back to UNKNOWN/placeholder")
	}
	fmt.Fprintf(w, "asm:        %s\n", script.Disassemble(raw))
	if out.KeyType == model.KeyStealth {
		dataHex, dataUTF8, protocol := script.ParseOpReturn(raw)
		fmt.Fprintf(w, "opReturn:   protocol=%s data=%s\n", protocol, dataHex)
		if dataUTF8 != nil {
			fmt.Fprintf(w, "opReturnUTF8: %s\n", strconv.Quote(*dataUTF8))
		}
	}
	return nil
}

func resolveOutDir(outDir, dataDir string) string {
	if outDir != "" {
		return outDir
	}
	return dataDir
}

func runScan(dataDir string, maxBlocks uint32, textLen int, outDir string) error {
	log, err := logging.New(filepath.Join(outDir, "blockchain.log"))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sc, err := scan.New(dataDir, maxBlocks, log)
	if err != nil {
		return err
	}
	defer sc.Close()

	log.Infow("scanning block headers", "dir", dataDir)
	for {
		_, complete, err := sc.ScanNext()
		if err != nil {
			return err
		}
		if complete {
			break
		}
	}

	tip, ok := sc.Tip()
	if !ok {
		log.Warnw("no blocks found")
		return nil
	}
	chain := scan.BuildChain(sc.Headers(), tip)
	orphans := scan.OrphanCount(sc.Headers(), chain)
	log.Infow("built canonical chain", "blocks", logging.FormatNumber(int64(len(chain))), "orphans", orphans)

	ix, err := index.NewIndexer(filepath.Join(outDir, txFileName), filepath.Join(outDir, addrFileName), log)
	if err != nil {
		return err
	}

	var asciiReport *os.File
	if textLen > 0 {
		asciiReport, err = os.Create(filepath.Join(outDir, "AsciiTextReport.txt"))
		if err != nil {
			return err
		}
		defer asciiReport.Close()
	}

	for i, hdr := range chain {
		body, err := sc.ReadBlockBody(hdr)
		if err != nil {
			ix.Close()
			return fmt.Errorf("reading block %d body: %w", i, err)
		}

		blk, err := chainparse.ParseBlockBody(model.Block{
			BlockNumber: uint32(i),
			PrevHash:    hdr.PrevHash,
			Time:        hdr.Time,
		}, body)
		if err != nil {
			ix.Close()
			return fmt.Errorf("parsing block %d: %w", i, err)
		}

		if err := ix.AddBlock(uint32(i), blk); err != nil {
			ix.Close()
			return fmt.Errorf("indexing block %d: %w", i, err)
		}

		if asciiReport != nil {
			for _, run := range scan.FindAsciiRuns(body, textLen) {
				fmt.Fprintf(asciiReport, "[block %d] %s\n", i, run)
			}
		}

		if (i+1)%1000 == 0 {
			log.Infow("progress", "block", logging.FormatNumber(int64(i+1)))
		}
	}
	log.Infow("pass 1 complete", "transactions", logging.FormatNumber(int64(ix.TxCount())),
		"addresses", logging.FormatNumber(int64(ix.AddressCount())), "duplicates", ix.DuplicateCount)

	if err := ix.Close(); err != nil {
		return err
	}

	return runRebuild(outDir)
}

func runRebuild(outDir string) error {
	al, err := index.LoadAddressList(filepath.Join(outDir, addrFileName))
	if err != nil {
		return err
	}
	recs, err := records.Build(filepath.Join(outDir, txFileName), uint32(len(al.Addresses)))
	if err != nil {
		return err
	}
	return records.Save(filepath.Join(outDir, recordsFileName), recs)
}

func runAnalyze(outDir string) error {
	recs, err := records.Load(filepath.Join(outDir, recordsFileName))
	if err != nil {
		return err
	}
	al, err := index.LoadAddressList(filepath.Join(outDir, addrFileName))
	if err != nil {
		return err
	}

	cutoff := latestActivity(recs)
	engine := analytics.NewEngine(recs, al.Addresses, cutoff)
	rows := engine.TopBalances(50000, cutoff)
	if err := analytics.WriteTopBalances(filepath.Join(outDir, "TopBalances.csv"), rows); err != nil {
		return err
	}

	buckets, zombies, err := analytics.DailyStatistics(filepath.Join(outDir, txFileName), al.Addresses)
	if err != nil {
		return err
	}
	if err := analytics.WriteDailyStatistics(filepath.Join(outDir, "Transactions.csv"), buckets); err != nil {
		return err
	}
	if err := analytics.WriteValueDistribution(filepath.Join(outDir, "ValueDistribution.csv"), buckets); err != nil {
		return err
	}
	return analytics.WriteZombieReport(filepath.Join(outDir, "ZombieReport.csv"), zombies)
}

func latestActivity(recs []model.AddressRecord) uint32 {
	var max uint32
	for _, r := range recs {
		if r.LastReceive > max {
			max = r.LastReceive
		}
		if r.LastSend > max {
			max = r.LastSend
		}
	}
	return max
}
