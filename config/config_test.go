package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func writeFile(c *qt.C, content string) string {
	path := filepath.Join(c.TempDir(), "qfnode.toml")
	c.Assert(os.WriteFile(path, []byte(content), 0o600), qt.IsNil)
	return path
}

func TestDefaults(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	c.Assert(cfg.Validate(), qt.IsNil)
	c.Assert(cfg.API.Port, qt.Equals, 9090)
	c.Assert(cfg.Runner.BatchSize, qt.Equals, uint32(25))
	c.Assert(cfg.Payouts.Interval.Duration, qt.Equals, 5*time.Second)
	c.Assert(filepath.Base(cfg.DataDir), qt.Equals, ".qftally")
	c.Assert(cfg.UsesWeb3(), qt.IsFalse)
}

func TestLoad(t *testing.T) {
	c := qt.New(t)
	path := writeFile(c, `
datadir = "/tmp/qf"

[log]
level = "debug"

[api]
port = 8080

[runner]
batch-size = 10
interval = "250ms"
auto-finalize = true
`)
	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.DataDir, qt.Equals, "/tmp/qf")
	c.Assert(cfg.Log.Level, qt.Equals, "debug")
	c.Assert(cfg.Log.Output, qt.Equals, "stdout")
	c.Assert(cfg.API.Host, qt.Equals, "0.0.0.0")
	c.Assert(cfg.API.Port, qt.Equals, 8080)
	c.Assert(cfg.Runner.BatchSize, qt.Equals, uint32(10))
	c.Assert(cfg.Runner.Interval.Duration, qt.Equals, 250*time.Millisecond)
	c.Assert(cfg.Runner.AutoFinalize, qt.IsTrue)
	c.Assert(cfg.Payouts.Settlement, qt.Equals, SettlementLedger)
}

func TestLoadInvalid(t *testing.T) {
	c := qt.New(t)
	for _, content := range []string{
		"[log]\nlevel = \"loud\"\n",
		"[runner]\nbatch-size = 0\n",
		"[payouts]\nsettlement = \"token\"\n",
		"[registry]\nsource = \"contract\"\n",
		"[web3]\ntoken = \"0x1234\"\n",
		"[registry]\nstart-time = 10\nend-time = 5\n",
		"[api]\nport = 70000\n",
	} {
		_, err := Load(writeFile(c, content))
		c.Assert(err, qt.ErrorMatches, "invalid config: .*", qt.Commentf("%s", content))
	}
	_, err := Load(writeFile(c, "datadir = ["))
	c.Assert(err, qt.ErrorMatches, "decode config .*")
	_, err = Load(filepath.Join(c.TempDir(), "missing.toml"))
	c.Assert(err, qt.ErrorMatches, "open config: .*")
}

func TestWeb3Config(t *testing.T) {
	c := qt.New(t)
	path := writeFile(c, `
[payouts]
settlement = "token"

[registry]
source = "contract"
start-time = 100
end-time = 200

[web3]
rpc = "http://localhost:8545"
private-key = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
token = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
registry = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
`)
	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.UsesWeb3(), qt.IsTrue)
	c.Assert(cfg.Registry.EndTime, qt.Equals, int64(200))
}

func TestWriteAndLoad(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	cfg.DataDir = "/var/lib/qf"
	cfg.Runner.Interval = Duration{time.Minute}
	path := filepath.Join(c.TempDir(), "out.toml")
	c.Assert(cfg.Write(path), qt.IsNil)

	got, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, cfg)
}

func TestPrintHidesPrivateKey(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	cfg.Web3.PrivateKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	buf := new(bytes.Buffer)
	c.Assert(cfg.Print(buf), qt.IsNil)
	c.Assert(strings.Contains(buf.String(), "b71c71a6"), qt.IsFalse)
	c.Assert(strings.Contains(buf.String(), "batch-size"), qt.IsTrue)
	c.Assert(cfg.Web3.PrivateKey, qt.HasLen, 64)
}
