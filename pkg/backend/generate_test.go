/*
 *     Copyright 2025 The CNAI Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/modelpack/llmctl/internal/process"
	"github.com/modelpack/llmctl/pkg/archiver"
	"github.com/modelpack/llmctl/pkg/catalog"
	"github.com/modelpack/llmctl/pkg/config"
	"github.com/modelpack/llmctl/pkg/errdefs"
	mockhfhub "github.com/modelpack/llmctl/test/mocks/hfhub"
	mockprocess "github.com/modelpack/llmctl/test/mocks/process"
)

const gpt2Rev = "11c5a3d5811f50298f278a704980280950aedb10"

var gpt2Files = []string{"config.json", "model.safetensors", "pytorch_model.bin", "tokenizer.json"}

// fakeArchiver writes <model-name>.mar into the export path of an archiver command.
func fakeArchiver(_ context.Context, cmd process.Command) ([]byte, error) {
	var name, export string
	for i := 0; i < len(cmd.Args)-1; i++ {
		switch cmd.Args[i] {
		case "--model-name":
			name = cmd.Args[i+1]
		case "--export-path":
			export = cmd.Args[i+1]
		}
	}

	return []byte("done"), os.WriteFile(filepath.Join(export, name+".mar"), []byte("archive"), 0644)
}

func isArchiverCommand(cmd process.Command) bool {
	return cmd.Name == archiver.DefaultCommand
}

type generateSuite struct {
	suite.Suite
	hub     *mockhfhub.Hub
	runner  *mockprocess.Runner
	out     *bytes.Buffer
	backend Backend
	cfg     *config.Generate
	baseDir string
}

func (s *generateSuite) SetupTest() {
	s.hub = mockhfhub.NewHub(s.T())
	s.runner = mockprocess.NewRunner(s.T())
	s.out = &bytes.Buffer{}

	s.baseDir = s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(s.baseDir, catalog.DefaultHandlerName), []byte("handler"), 0644))
	c := catalog.New(s.baseDir, map[string]catalog.Entry{
		"gpt2":      {RepoID: "gpt2", RepoVersion: gpt2Rev, Handler: catalog.DefaultHandlerName},
		"llama2_7b": {RepoID: "meta-llama/Llama-2-7b-hf", RepoVersion: "6fdf2e60f86ff2481f2241aaee459f85b5b0bbb9"},
	})

	b, err := New(c, WithHub(s.hub), WithRunner(s.runner), WithOutput(s.out), WithWorkDir(s.baseDir))
	s.Require().NoError(err)
	s.backend = b

	s.cfg = config.NewGenerate()
	s.cfg.ModelName = "gpt2"
	s.cfg.ModelPath = filepath.Join(s.baseDir, "models", "gpt2")
	s.cfg.MarOutput = filepath.Join(s.baseDir, "model_store")
	s.Require().NoError(os.MkdirAll(s.cfg.ModelPath, 0755))
	s.Require().NoError(os.MkdirAll(s.cfg.MarOutput, 0755))
}

// expectDownload makes the mocked hub list gpt2 and write the kept files on download.
func (s *generateSuite) expectDownload() {
	s.hub.On("ListRepoCommits", mock.Anything, "gpt2", gpt2Rev, "").Return([]string{gpt2Rev}, nil)
	s.hub.On("ListRepoFiles", mock.Anything, "gpt2", gpt2Rev, "").Return(gpt2Files, nil)
	s.hub.On("SnapshotDownload", mock.Anything, "gpt2", gpt2Rev, s.cfg.ModelPath, "", mock.Anything).
		Return(func(_ context.Context, _, _, dir, _ string, ignore []string) error {
			s.Contains(ignore, "*.bin")
			for _, f := range []string{"config.json", "model.safetensors", "tokenizer.json"} {
				if err := os.WriteFile(filepath.Join(dir, f), []byte(f), 0644); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *generateSuite) TestGenerate_CatalogModel() {
	s.expectDownload()
	s.runner.On("Run", mock.Anything, mock.MatchedBy(isArchiverCommand)).Return(fakeArchiver)

	result, err := s.backend.Generate(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.cfg.MarOutput, "gpt2_11c5a3d.mar"), result.Path)
	s.FileExists(result.Path)
	s.Contains(s.out.String(), "Successfully downloaded model files")

	entries, err := os.ReadDir(s.cfg.MarOutput)
	s.Require().NoError(err)
	s.Len(entries, 1, "staging directory must be removed")
}

func (s *generateSuite) TestGenerate_RerunFailsWithExistingArchive() {
	s.expectDownload()
	s.runner.On("Run", mock.Anything, mock.MatchedBy(isArchiverCommand)).Return(fakeArchiver).Once()

	first, err := s.backend.Generate(context.Background(), s.cfg)
	s.Require().NoError(err)
	before, err := os.ReadFile(first.Path)
	s.Require().NoError(err)

	_, err = s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrArchiveAlreadyExists)

	after, err := os.ReadFile(first.Path)
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *generateSuite) TestGenerate_WrongModelStore() {
	s.cfg.MarOutput = filepath.Join(s.baseDir, "wrong_model_store")

	_, err := s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrPathNotFound)
	s.NoDirExists(s.cfg.MarOutput)
}

func (s *generateSuite) TestGenerate_CustomModelSkipDownloadEmptyDir() {
	s.cfg.ModelName = "my_model"
	s.cfg.SkipDownload = true

	_, err := s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrEmptyModelDirectory)
}

func (s *generateSuite) TestGenerate_CustomModelSkipDownload() {
	s.cfg.ModelName = "my_model"
	s.cfg.SkipDownload = true
	s.Require().NoError(os.MkdirAll(filepath.Join(s.cfg.ModelPath, "sub"), 0755))
	s.Require().NoError(os.WriteFile(filepath.Join(s.cfg.ModelPath, "sub", "weights.bin"), []byte("w"), 0644))
	s.runner.On("Run", mock.Anything, mock.MatchedBy(isArchiverCommand)).Return(fakeArchiver)

	result, err := s.backend.Generate(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.cfg.MarOutput, "my_model.mar"), result.Path)
	s.hub.AssertNotCalled(s.T(), "ListRepoFiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *generateSuite) TestGenerate_CustomModelWithoutRepoID() {
	s.cfg.ModelName = "my_model"

	_, err := s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrMissingRepositoryID)
	s.ErrorContains(err, "gpt2, llama2_7b")
}

func (s *generateSuite) TestGenerate_GatedModelWithoutToken() {
	s.cfg.ModelName = "llama2_7b"

	_, err := s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrMissingCredential)
}

func (s *generateSuite) TestGenerate_ModelDirectoryNotEmpty() {
	s.hub.On("ListRepoCommits", mock.Anything, "gpt2", gpt2Rev, "").Return([]string{gpt2Rev}, nil)
	s.Require().NoError(os.WriteFile(filepath.Join(s.cfg.ModelPath, "stale.bin"), []byte("x"), 0644))

	_, err := s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrModelDirectoryNotEmpty)
}

func (s *generateSuite) TestGenerate_FileSetMismatch() {
	s.hub.On("ListRepoCommits", mock.Anything, "gpt2", gpt2Rev, "").Return([]string{gpt2Rev}, nil)
	s.hub.On("ListRepoFiles", mock.Anything, "gpt2", gpt2Rev, "").Return(gpt2Files, nil)
	s.hub.On("SnapshotDownload", mock.Anything, "gpt2", gpt2Rev, s.cfg.ModelPath, "", mock.Anything).
		Return(func(_ context.Context, _, _, dir, _ string, _ []string) error {
			return os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0644)
		})

	_, err := s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrFileSetMismatch)
	s.ErrorContains(err, "model.safetensors")
	s.runner.AssertNotCalled(s.T(), "Run", mock.Anything, mock.Anything)
}

func (s *generateSuite) TestGenerate_ArchiverFailure() {
	s.expectDownload()
	s.runner.On("Run", mock.Anything, mock.MatchedBy(isArchiverCommand)).Return([]byte("boom"), errors.New("exit status 1"))

	_, err := s.backend.Generate(context.Background(), s.cfg)
	s.ErrorIs(err, errdefs.ErrArchiveGenerationFailed)
	s.NoFileExists(filepath.Join(s.cfg.MarOutput, "gpt2_11c5a3d.mar"))
}

func TestGenerateSuite(t *testing.T) {
	suite.Run(t, new(generateSuite))
}
