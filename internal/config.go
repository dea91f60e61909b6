// Copyright © 2026 The PANGEA Authors.
//
//  This file is part of pangea.
//
//  pangea is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  pangea is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with pangea. If not, see <http://www.gnu.org/licenses/>.

package internal

// this file implements the config system used by the cmd package

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/inconshreveable/log15"
	"github.com/jinzhu/configor"
	"github.com/olekukonko/tablewriter"
)

const (
	configCommonBasename = ".pangea_config.yml"

	// S3Prefix is the prefix used by S3 paths
	S3Prefix = "s3://"

	// Production is the name of the main deployment
	Production = "production"

	// Development is the name of the development deployment, used during
	// testing
	Development = "development"

	// ConfigSourceEnvVar is a config value source
	ConfigSourceEnvVar = "env var"

	// ConfigSourceDefault is a config value source
	ConfigSourceDefault = "default"

	sourcesProperty = "sources"
)

// Config holds the configuration options for the pangea orchestrator. The
// Sample* options describe the metadata source, Store* the object store that
// holds completion markers and results, Ref* the shared reference data
// bundle, and *Exec the external tools each pipeline stage shells out to.
type Config struct {
	ManagerDir         string `default:"~/.pangea"`
	ManagerPidFile     string `default:"pid"`
	ManagerLogFile     string `default:"log"`
	ManagerDBFile      string `default:"runs.db"`
	ManagerPoolFile    string `default:"pool.json"`
	ManagerUmask       int    `default:"007"`
	Deployment         string `default:"production"`
	SampleSheet        string `default:"samples.tsv"`
	SampleColumn       string `default:"sample_id"`
	SampleSkip         int    `default:"0"`
	ScratchDir         string `default:"/tmp/pangea"`
	ScratchMinFreeGB   int    `default:"350"`
	StoreEndpoint      string `default:""`
	StoreAccessKey     string `default:""`
	StoreSecretKey     string `default:""`
	StoreBucket        string `default:"pangea"`
	StoreSecure        bool   `default:"true"`
	StoreNamespace     string `default:"pangea"`
	RefFasta           string `default:""`
	RefFastaIndex      string `default:""`
	RefRegions         string `default:""`
	StagerExec         string `default:"iget"`
	CallerExec         string `default:"freebayes-parallel"`
	SVCallerExec       string `default:"delly"`
	CompressExec       string `default:"bgzip"`
	Threads            int    `default:"0"`
	StagingTimeoutMins int    `default:"720"`
	CallingTimeoutMins int    `default:"1440"`
	SVTimeoutMins      int    `default:"720"`
	UploadTimeoutMins  int    `default:"240"`
	PoolProvider       string `default:"local"`
	PoolNodes          int    `default:"1"`
	PoolNodeThreads    int    `default:"0"`

	sources map[string]string
}

// merge compares existing to new Config values, and for each one that has
// changed, sets the given source on the changed property in our sources, and
// sets the new value on ourselves.
func (c *Config) merge(new *Config, source string) {
	v := reflect.ValueOf(*c)
	typeOfC := v.Type()
	vNew := reflect.ValueOf(*new)

	if c.sources == nil {
		c.sources = make(map[string]string)
	}

	for i := 0; i < v.NumField(); i++ {
		property := typeOfC.Field(i).Name
		if property == sourcesProperty {
			continue
		}

		if vNew.Field(i).Interface() != v.Field(i).Interface() {
			c.sources[property] = source

			adrField := reflect.ValueOf(c).Elem().Field(i)
			switch typeOfC.Field(i).Type.Kind() {
			case reflect.String:
				adrField.SetString(vNew.Field(i).String())
			case reflect.Int:
				adrField.SetInt(vNew.Field(i).Int())
			case reflect.Bool:
				adrField.SetBool(vNew.Field(i).Bool())
			}
		}
	}
}

// clone makes a new Config with our values.
func (c *Config) clone() *Config {
	new := &Config{}

	v := reflect.ValueOf(*c)
	typeOfC := v.Type()
	for i := 0; i < v.NumField(); i++ {
		property := typeOfC.Field(i).Name
		if property == sourcesProperty {
			continue
		}

		adrField := reflect.ValueOf(new).Elem().Field(i)
		switch typeOfC.Field(i).Type.Kind() {
		case reflect.String:
			adrField.SetString(v.Field(i).String())
		case reflect.Int:
			adrField.SetInt(v.Field(i).Int())
		case reflect.Bool:
			adrField.SetBool(v.Field(i).Bool())
		}
	}

	new.sources = make(map[string]string)
	for key, val := range c.sources {
		new.sources[key] = val
	}

	return new
}

// Source returns where the value of a Config field was defined.
func (c Config) Source(field string) string {
	if c.sources == nil {
		return ConfigSourceDefault
	}
	source, set := c.sources[field]
	if !set {
		return ConfigSourceDefault
	}
	return source
}

func (c Config) String() string {
	v := reflect.ValueOf(c)
	typeOfC := v.Type()

	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetHeader([]string{"Config", "Value", "Source"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i := 0; i < v.NumField(); i++ {
		property := typeOfC.Field(i).Name
		if property == sourcesProperty {
			continue
		}

		source := c.sources[property]
		if source == "" {
			source = ConfigSourceDefault
		}

		value := fmt.Sprintf("%v", v.Field(i).Interface())
		if property == "StoreSecretKey" && value != "" {
			value = "[redacted]"
		}

		table.Append([]string{property, value, source})
	}

	table.Render()
	return tableString.String()
}

/*
ConfigLoad loads configuration settings from files and environment variables.
Note, this function exits on error, since without config we can't do anything.

We prefer settings in config file in current dir (or the current dir's parent
dir if the useparentdir option is true (used for test scripts)) over config
file in home directory over config file in dir pointed to by
PANGEA_CONFIG_DIR.

The deployment argument determines if we read .pangea_config.production.yml
or .pangea_config.development.yml; we always read .pangea_config.yml. If the
empty string is supplied, deployment is development if you're in the git
repository directory. Otherwise, deployment is taken from the environment
variable PANGEA_DEPLOYMENT, and if that's not set it defaults to production.

Multiple of these files can be used to have settings that are common to
multiple users and deployments, and settings specific to users or
deployments.

Settings found in no file can be set with the environment variable
PANGEA_<setting name in caps>, eg.
export PANGEA_STOREBUCKET="wgs-results"
*/
func ConfigLoad(deployment string, useparentdir bool, logger log15.Logger) Config {
	pwd, err := os.Getwd()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	if useparentdir {
		pwd = filepath.Dir(pwd)
	}

	// if deployment not set on the command line
	if deployment != Development && deployment != Production {
		deployment = DefaultDeployment(logger)
	}
	err = os.Setenv("CONFIGOR_ENV_PREFIX", "PANGEA")
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	// because we want to know the source of every value, we can't take
	// advantage of configor.Load() being able to take all env vars and config
	// files at once. We do it repeatedly and merge results instead
	config := &Config{}
	if cerr := defaults.Set(config); cerr != nil {
		logger.Error(cerr.Error())
		os.Exit(1)
	}

	// load env vars. ManagerUmask is likely to be zero prefixed by user, but
	// that is not converted to int correctly, so fix first
	umask := os.Getenv("PANGEA_MANAGERUMASK")
	if umask != "" && strings.HasPrefix(umask, "0") {
		umask = strings.TrimLeft(umask, "0")
		os.Setenv("PANGEA_MANAGERUMASK", umask)
	}
	configEnv := &Config{}
	err = configor.Load(configEnv)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	config.merge(configEnv, ConfigSourceEnvVar)

	// read each config file and merge results
	configDeploymentBasename := ".pangea_config." + deployment + ".yml"

	if configDir := os.Getenv("PANGEA_CONFIG_DIR"); configDir != "" {
		configLoadFromFile(config, filepath.Join(configDir, configCommonBasename), logger)
		configLoadFromFile(config, filepath.Join(configDir, configDeploymentBasename), logger)
	}

	home, herr := os.UserHomeDir()
	if herr != nil || home == "" {
		logger.Error("could not find home dir", "err", herr)
		os.Exit(1)
	}
	configLoadFromFile(config, filepath.Join(home, configCommonBasename), logger)
	configLoadFromFile(config, filepath.Join(home, configDeploymentBasename), logger)

	configLoadFromFile(config, filepath.Join(pwd, configCommonBasename), logger)
	configLoadFromFile(config, filepath.Join(pwd, configDeploymentBasename), logger)

	// adjust properties as needed
	config.Deployment = deployment

	// convert the possible ~/ in ManagerDir to abs path to user's home
	config.ManagerDir = TildaToHome(config.ManagerDir)
	config.ManagerDir += "_" + deployment

	// convert the possible relative paths in Manager*File to abs paths in
	// ManagerDir
	if !filepath.IsAbs(config.ManagerPidFile) {
		config.ManagerPidFile = filepath.Join(config.ManagerDir, config.ManagerPidFile)
	}
	if !filepath.IsAbs(config.ManagerLogFile) {
		config.ManagerLogFile = filepath.Join(config.ManagerDir, config.ManagerLogFile)
	}
	if !filepath.IsAbs(config.ManagerDBFile) {
		config.ManagerDBFile = filepath.Join(config.ManagerDir, config.ManagerDBFile)
	}
	if !filepath.IsAbs(config.ManagerPoolFile) {
		config.ManagerPoolFile = filepath.Join(config.ManagerDir, config.ManagerPoolFile)
	}

	// the default scratch dir gets a per-user suffix, since two users
	// running on the same node must not share scratch
	if config.Source("ScratchDir") == ConfigSourceDefault {
		if uname, uerr := Username(); uerr == nil {
			config.ScratchDir += "_" + uname
		} else {
			logger.Warn("could not work out your username for the scratch dir", "err", uerr)
		}
	}

	if config.Threads < 1 {
		config.Threads = DefaultThreads()
	}
	if config.PoolNodeThreads < 1 {
		config.PoolNodeThreads = config.Threads
	}

	return *config
}

func configLoadFromFile(config *Config, path string, logger log15.Logger) {
	_, err := os.Stat(path)
	if err != nil {
		return
	}

	configFile := config.clone()
	err = configor.Load(configFile, path)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	config.merge(configFile, path)
}

// IsProduction tells you if we're in the production deployment.
func (c Config) IsProduction() bool {
	return c.Deployment == Production
}

// IsDevelopment tells you if we're in the development deployment.
func (c Config) IsDevelopment() bool {
	return c.Deployment == Development
}

// StageTimeouts returns the configured per-stage timeout durations, keyed by
// the timeout's config name. Zero or negative configured minutes mean no
// timeout for that stage.
func (c Config) StageTimeouts() map[string]int {
	return map[string]int{
		"staging": c.StagingTimeoutMins,
		"calling": c.CallingTimeoutMins,
		"sv":      c.SVTimeoutMins,
		"upload":  c.UploadTimeoutMins,
	}
}

// DefaultDeployment works out the default deployment.
func DefaultDeployment(logger log15.Logger) string {
	pwd, err := os.Getwd()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	// if we're in the git repository
	var deployment string
	if _, err := os.Stat(filepath.Join(pwd, "pipeline", "pipeline.go")); err == nil {
		// force development
		deployment = Development
	} else {
		// default to production
		deployment = Production

		// and allow env var to override with development
		if deploymentEnv := os.Getenv("PANGEA_DEPLOYMENT"); deploymentEnv != "" {
			if deploymentEnv == Development {
				deployment = Development
			}
		}
	}
	return deployment
}

// InS3 tells you if a path is to a file in S3.
func InS3(path string) bool {
	return strings.HasPrefix(path, S3Prefix)
}

// IsRemote tells you if a path is to a remote file system or object store,
// based on its URI.
func IsRemote(path string) bool {
	// (right now we only support S3, but IsRemote is to future-proof us and
	// avoid calling InS3() directly)
	return InS3(path)
}
