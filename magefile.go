//go:build mage

// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName    = "minvar"
	modulePath    = "github.com/penny-vault/minvar"
	defaultChart  = "growth.png"
	coverProfile  = "coverage.out"
	versionLdflag = "-X " + modulePath + "/common.commitHash=$COMMIT_HASH -X " + modulePath + "/common.buildDate=$BUILD_DATE"
)

// allow user to override go executable by running as GOEXE=xxx mage ...
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

// Build the minvar binary with the commit hash and build date stamped in
func Build() error {
	fmt.Println("Building...")
	return sh.RunWith(versionEnv(), goexe, "build", "-o", binaryName, "-ldflags", versionLdflag, ".")
}

func Install() error {
	return sh.RunWith(versionEnv(), goexe, "install", "-ldflags", versionLdflag, ".")
}

// Clean removes the binary, the default chart and the coverage profile
func Clean() {
	fmt.Println("Cleaning...")
	for _, fn := range []string{binaryName, defaultChart, coverProfile} {
		os.RemoveAll(fn)
	}
}

// Run formatting, vet and the race enabled tests
func Check() {
	mg.SerialDeps(Fmt, Vet, TestRace)
}

// Run tests
func Test() error {
	fmt.Println("Go Test")
	return runQuiet(goexe, "test", "./...")
}

// Run tests with race detector
func TestRace() error {
	fmt.Println("Go Test Race")
	return runQuiet(goexe, "test", "-race", "./...")
}

// Cover writes a coverage profile for every package and opens it in the browser
func Cover() error {
	fmt.Println("Go Cover")
	if err := runQuiet(goexe, "test", "-coverprofile="+coverProfile, "-covermode=count", "./..."); err != nil {
		return err
	}
	return sh.Run(goexe, "tool", "cover", "-html="+coverProfile)
}

// Fmt fails when gofmt would rewrite any file
func Fmt() error {
	fmt.Println("Go Format")
	// gofmt doesn't exit with non-zero when it finds unformatted code
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if out = strings.TrimSpace(out); out != "" {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(out)
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Run go vet linter
func Vet() error {
	fmt.Println("Go Vet")
	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}

// Analyze the two price files named by FIRST and SECOND with the freshly built binary
func Analyze() error {
	mg.Deps(Build)

	first := os.Getenv("FIRST")
	second := os.Getenv("SECOND")
	if first == "" || second == "" {
		return errors.New("set FIRST and SECOND to the price files to analyze")
	}
	return sh.RunV("./"+binaryName, "analyze", first, second, "--chart", defaultChart)
}

func versionEnv() map[string]string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return map[string]string{
		"COMMIT_HASH": hash,
		"BUILD_DATE":  time.Now().Format("2006-01-02T15:04:05Z0700"),
	}
}

// runQuiet only prints the command output when it fails, unless mage runs verbose
func runQuiet(cmd string, args ...string) error {
	if mg.Verbose() {
		return sh.RunV(cmd, args...)
	}
	out, err := sh.Output(cmd, args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, out)
	}
	return err
}
