// Copyright © 2016 Luit van Drongelen <luit@luit.eu>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ellerbrock/rcp-splitter/server"
	"github.com/ellerbrock/rcp-splitter/splitter"
	"github.com/ellerbrock/rcp-splitter/stats"
	"github.com/ellerbrock/rcp-splitter/upstream"
	"github.com/ellerbrock/rcp-splitter/upstream/memshard"
	"github.com/ellerbrock/rcp-splitter/upstream/redisshard"
)

var cfgFile string

// rootCmd is the `rcp-splitter` command.
var rootCmd = &cobra.Command{
	Use:   "rcp-splitter",
	Short: "Command splitter proxy for a sharded Redis-compatible backend",
	Long: `rcp-splitter fans MGET out across shards and routes every other
command to the single shard that owns its key, so that cluster-unaware
client libraries can talk to a sharded backend without knowing it is
sharded at all.`,
}

// serveCmd is the `rcp-splitter serve` command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for client connections and start splitting commands",
	Run:   runServe,
}

// Execute activates the `rcp-splitter` command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(64)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.rcp-splitter.yaml)")
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IPP("bind", "b", net.IPv4(127, 0, 0, 1), "IP address to bind to")
	viper.BindPFlag("bind", serveCmd.Flags().Lookup("bind"))

	serveCmd.Flags().IntP("port", "p", 6379, "port to listen on")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))

	serveCmd.Flags().String("backend", "memshard", "upstream pool implementation: memshard or redisshard")
	viper.BindPFlag("backend", serveCmd.Flags().Lookup("backend"))

	serveCmd.Flags().StringSlice("shard", nil, "shard identifier (repeatable); for redisshard, a host:port address")
	viper.BindPFlag("shard", serveCmd.Flags().Lookup("shard"))

	serveCmd.Flags().String("stat-prefix", splitter.DefaultStatPrefix, "prefix for the dispatcher's own counters")
	viper.BindPFlag("stat-prefix", serveCmd.Flags().Lookup("stat-prefix"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" { // enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".rcp-splitter")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("rcp_splitter")
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Probably no config found
		} else {
			fmt.Printf("Unable to read config: %v\n", err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) {
	shards := viper.GetStringSlice("shard")
	if len(shards) == 0 {
		shards = []string{"shard-0"}
	}

	pool, err := newPool(viper.GetString("backend"), shards)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	dispatcher := splitter.NewDispatcher(pool, stats.NewCounters(), viper.GetString("stat-prefix"))

	addrstr := fmt.Sprintf("%s:%d", viper.GetString("bind"), viper.GetInt("port"))
	laddr, err := net.ResolveTCPAddr("tcp", addrstr)
	if err != nil {
		fmt.Printf("Error: unable to use address %s as TCP address: %v\n", addrstr, err)
		return
	}
	l, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		fmt.Printf("Error: unable to listen on %s: %v\n", laddr.String(), err)
		return
	}
	defer l.Close()
	fmt.Printf("Listening on %v (backend=%s, shards=%v)\n", laddr, viper.GetString("backend"), shards)
	for {
		c, err := l.AcceptTCP()
		if err != nil {
			fmt.Printf("Error: accept: %v\n", err)
			return
		}
		go server.Serve(c, dispatcher)
	}
}

func newPool(backend string, shards []string) (upstream.Pool, error) {
	switch backend {
	case "memshard":
		return memshard.New(shards), nil
	case "redisshard":
		return redisshard.New(shards), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want memshard or redisshard)", backend)
	}
}
