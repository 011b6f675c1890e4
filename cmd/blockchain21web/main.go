// Command blockchain21web is the supplemented HTTP status/report server
// (SPEC_FULL.md §6 item 3): it queries the already-built
// TransactionFile.bin/PublicKeys.bin/PublicKeyRecords.bin indexes and the
// script inspector, it does not run the scan/index pipeline itself.
//
// Grounded on the teacher's cmd/web/main.go (Gin router, CORS, health
// check, fallback HTML page), adapted from "grade a posted fixture" to
// "query the already-built indexes."
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/jratcliff63367/blockchain21/internal/analytics"
	"github.com/jratcliff63367/blockchain21/internal/btcaddr"
	"github.com/jratcliff63367/blockchain21/internal/index"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/jratcliff63367/blockchain21/internal/records"
	"github.com/jratcliff63367/blockchain21/internal/script"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type server struct {
	outDir    string
	engine    *analytics.Engine
	addrIndex map[model.Address]uint32
}

func main() {
	outDir := os.Getenv("BLOCKCHAIN21_OUTDIR")
	if outDir == "" {
		outDir = "."
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	srv, err := newServer(outDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading persisted files:", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "addresses": len(srv.engine.Addresses)})
	})
	r.GET("/api/top-balances", srv.handleTopBalances)
	r.GET("/api/balance/:address", srv.handleBalance)
	r.GET("/api/daily-stats", srv.handleDailyStats)
	r.POST("/api/inspect-script", srv.handleInspectScript)

	r.GET("/", func(c *gin.Context) {
		c.Data(200, "text/html", []byte(fallbackHTML))
	})

	fmt.Printf("http://127.0.0.1:%s\n", port)
	r.Run(":" + port) //nolint:errcheck
}

func newServer(outDir string) (*server, error) {
	recs, err := records.Load(outDir + "/PublicKeyRecords.bin")
	if err != nil {
		return nil, err
	}
	al, err := index.LoadAddressList(outDir + "/PublicKeys.bin")
	if err != nil {
		return nil, err
	}

	var cutoff uint32
	for _, r := range recs {
		if r.LastSend > cutoff {
			cutoff = r.LastSend
		}
		if r.LastReceive > cutoff {
			cutoff = r.LastReceive
		}
	}

	addrIndex := make(map[model.Address]uint32, len(al.Addresses))
	for i, a := range al.Addresses {
		addrIndex[a] = uint32(i)
	}

	return &server{
		outDir:    outDir,
		engine:    analytics.NewEngine(recs, al.Addresses, cutoff),
		addrIndex: addrIndex,
	}, nil
}

func (s *server) handleTopBalances(c *gin.Context) {
	n := 100
	if v := c.Query("n"); v != "" {
		fmt.Sscanf(v, "%d", &n)
	}
	rows := s.engine.TopBalances(n, s.engine.Now())
	c.JSON(200, rows)
}

func (s *server) handleBalance(c *gin.Context) {
	ascii := c.Param("address")
	addr, err := btcaddr.Base58CheckDecode(ascii)
	if err != nil {
		c.JSON(400, gin.H{"error": errorInfo{Code: "INVALID_ADDRESS", Message: err.Error()}})
		return
	}
	idx, ok := s.addrIndex[addr]
	if !ok {
		c.JSON(404, gin.H{"error": errorInfo{Code: "NOT_FOUND", Message: "address not seen in this index"}})
		return
	}
	bal := s.engine.BalanceAt(idx, s.engine.Now())
	c.JSON(200, gin.H{"address": ascii, "balanceSats": bal})
}

func (s *server) handleDailyStats(c *gin.Context) {
	buckets, _, err := analytics.DailyStatistics(s.outDir+"/TransactionFile.bin", s.engine.Addresses)
	if err != nil {
		c.JSON(500, gin.H{"error": errorInfo{Code: "INTERNAL_ERROR", Message: err.Error()}})
		return
	}
	c.JSON(200, buckets)
}

type inspectScriptRequest struct {
	ScriptHex string `json:"script_hex" binding:"required"`
}

func (s *server) handleInspectScript(c *gin.Context) {
	var req inspectScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": errorInfo{Code: "INVALID_REQUEST", Message: err.Error()}})
		return
	}
	raw, err := hex.DecodeString(req.ScriptHex)
	if err != nil {
		c.JSON(400, gin.H{"error": errorInfo{Code: "INVALID_HEX", Message: err.Error()}})
		return
	}
	out := script.Classify(0, raw)
	resp := gin.H{
		"keyType":      out.KeyType.String(),
		"asciiAddress": out.AsciiAddress,
		"warning":      out.Warning,
		"asm":          script.Disassemble(raw),
	}
	if out.KeyType == model.KeyStealth {
		dataHex, dataUTF8, protocol := script.ParseOpReturn(raw)
		resp["opReturnProtocol"] = protocol
		resp["opReturnDataHex"] = dataHex
		resp["opReturnDataUtf8"] = dataUTF8
	}
	c.JSON(200, resp)
}

const fallbackHTML = `<!DOCTYPE html>
<html>
<head>
    <title>blockchain21 report server</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        pre { background: #f5f5f5; padding: 15px; overflow-x: auto; }
    </style>
</head>
<body>
    <h1>blockchain21</h1>
    <p>Endpoints: GET /api/top-balances, GET /api/balance/:address, GET /api/daily-stats, POST /api/inspect-script</p>
</body>
</html>`
