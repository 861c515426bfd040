// Command ccrnode manages the keys of a control component and runs the
// four control components of an election in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"gopkg.in/urfave/cli.v1"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting"
	"go.dedis.ch/ccrnode/evoting/config"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/setup"
	"go.dedis.ch/ccrnode/evoting/transport"
)

var electionFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "questions, q",
		Value: 3,
		Usage: "number of questions of the election",
	},
	cli.IntFlag{
		Name:  "options, o",
		Value: 3,
		Usage: "number of options per question, without the blank one",
	},
	cli.StringFlag{
		Name:  "selections, s",
		Value: "0,4,8",
		Usage: "comma separated indices of the selected options",
	},
	cli.StringFlag{
		Name:  "metrics, m",
		Usage: "address to serve the prometheus metrics on while running",
	},
}

var cmds = cli.Commands{
	{
		Name:    "keygen",
		Usage:   "create the keys and the configuration of a node",
		Aliases: []string{"k"},
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "node, n",
				Usage: "id of the node, 1 to 4",
			},
			cli.IntFlag{
				Name:  "size",
				Value: 10,
				Usage: "maximum number of selections of a vote",
			},
			cli.StringFlag{
				Name:  "db",
				Usage: "path of the database of the node",
			},
			cli.StringFlag{
				Name:  "out",
				Usage: "path of the configuration file to write",
			},
		},
		Action: keygen,
	},
	{
		Name:      "run",
		Usage:     "run the four configured nodes and send them one vote",
		Aliases:   []string{"r"},
		ArgsUsage: "node1.toml node2.toml node3.toml node4.toml",
		Flags:     electionFlags,
		Action:    run,
	},
	{
		Name:    "simulate",
		Usage:   "run four nodes with fresh keys and temporary databases and send them one vote",
		Aliases: []string{"s"},
		Flags: append(electionFlags, cli.IntFlag{
			Name:  "workers, w",
			Value: config.DefaultWorkers,
			Usage: "messages processed in parallel by every node",
		}),
		Action: simulate,
	},
}

func main() {
	log.ErrFatal(newApp().Run(os.Args))
}

func newApp() *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = "ccrnode"
	cliApp.Usage = "Control component of the return codes protocol."
	cliApp.Version = "0.1"
	cliApp.Commands = cmds
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	return cliApp
}

func keygen(c *cli.Context) error {
	id := c.Int("node")
	if err := lib.ValidateNodeID(id); err != nil {
		return err
	}
	db := c.String("db")
	if db == "" {
		db = fmt.Sprintf("node%d.db", id)
	}
	out := c.String("out")
	if out == "" {
		return errors.New("--out flag is required")
	}
	keys, err := setup.GenerateNodeKeys(ccrnode.Suite, id, c.Int("size"), random.New())
	if err != nil {
		return err
	}
	cfg, err := config.New(ccrnode.Suite, keys, db)
	if err != nil {
		return err
	}
	if err := cfg.Save(out); err != nil {
		return err
	}
	log.Infof("Wrote the configuration of node %d to %s", id, out)
	fmt.Println("# Add this entry to the configuration of the other nodes.")
	return toml.NewEncoder(os.Stdout).Encode(struct{ Peers []config.Peer }{cfg.Peers})
}

func run(c *cli.Context) error {
	if c.NArg() != lib.NumberOfNodes {
		return fmt.Errorf("need the configuration files of the %d nodes", lib.NumberOfNodes)
	}
	var keys []*setup.NodeKeys
	var dbs []string
	var first *config.Config
	for i, path := range c.Args() {
		cfg, err := config.Load(ccrnode.Suite, path)
		if err != nil {
			return err
		}
		if cfg.NodeID != i+1 {
			return fmt.Errorf("%s is the configuration of node %d, expected node %d", path, cfg.NodeID, i+1)
		}
		k, err := cfg.NodeKeys(ccrnode.Suite)
		if err != nil {
			return err
		}
		keys = append(keys, k)
		dbs = append(dbs, cfg.Database)
		if first == nil {
			first = cfg
		}
	}
	return deployAndVote(c, keys, deploymentConfig{
		databases: dbs,
		transport: first.Transport(),
		workers:   first.Workers,
		timeout:   first.Timeout.Duration,
	})
}

func simulate(c *cli.Context) error {
	dir, err := ioutil.TempDir("", "ccrnode-simulation")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	var keys []*setup.NodeKeys
	var dbs []string
	for id := 1; id <= lib.NumberOfNodes; id++ {
		k, err := setup.GenerateNodeKeys(ccrnode.Suite, id, c.Int("questions"), random.New())
		if err != nil {
			return err
		}
		keys = append(keys, k)
		dbs = append(dbs, filepath.Join(dir, fmt.Sprintf("node%d.db", id)))
	}
	return deployAndVote(c, keys, deploymentConfig{
		databases: dbs,
		transport: transport.DefaultConfig,
		workers:   c.Int("workers"),
		timeout:   config.DefaultTimeout,
	})
}

func deployAndVote(c *cli.Context, keys []*setup.NodeKeys, cfg deploymentConfig) error {
	selections, err := parseSelections(c.String("selections"))
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	cfg.registry = reg
	if addr := c.String("metrics"); addr != "" {
		go func() {
			err := http.ListenAndServe(addr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Error("Metrics server stopped:", err)
		}()
	}

	d, err := newDeployment(keys, cfg)
	if err != nil {
		return err
	}
	defer d.close()
	d.start()

	now := time.Now().Unix()
	e, err := d.configure(setup.Params{
		Questions:          c.Int("questions"),
		OptionsPerQuestion: c.Int("options"),
		WriteInsPlusOne:    1,
		Voters:             1,
		Sets:               1,
		StartTime:          now - 3600,
		FinishTime:         now + 3600,
		GracePeriod:        60,
	})
	if err != nil {
		return err
	}
	shares, err := d.vote(context.Background(), e, 0, selections)
	if err != nil {
		return err
	}
	printShares(shares)
	return nil
}

func printShares(shares []*evoting.LongChoiceReturnCodesSharePayload) {
	for _, s := range shares {
		fmt.Printf("Node %d, card %s\n", s.Share.NodeID, s.Share.ContextIds.VerificationCardID)
		fmt.Printf("  K: %v\n", s.Share.VoterChoiceReturnCodeGenerationPublicKey)
		for i, l := range s.Share.LongChoiceReturnCodeShare {
			fmt.Printf("  lCC[%d]: %v\n", i, l)
		}
	}
}

func parseSelections(s string) ([]int, error) {
	if s == "" {
		return nil, errors.New("no selection")
	}
	var selections []int
	for _, f := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("selection %q: %v", f, err)
		}
		if i < 0 {
			return nil, fmt.Errorf("negative selection %d", i)
		}
		selections = append(selections, i)
	}
	return selections, nil
}
