package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miu200521358/pose-retarget/pkg/model"
	"github.com/miu200521358/pose-retarget/pkg/motion"
)

func TestWriteMotions_SkipsFailedEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	allFrames := []*model.Frames{
		{Path: filepath.Join(dir, "p1_landmarks.json")},
		{Path: filepath.Join(dir, "p2_landmarks.json")},
	}

	m := motion.NewBoneMotion(allFrames[1].Path)
	m.AppendBoneFrame(model.Hips, motion.NewBoneFrame(0))

	// 1人目はリターゲット失敗で nil のまま
	motions := []*motion.BoneMotion{nil, m}

	require.NoError(t, WriteMotions(allFrames, motions, dir, "full", "Full"))

	_, err := os.Stat(filepath.Join(dir, "p1_full.json"))
	assert.True(t, os.IsNotExist(err), "失敗分のファイルは作られない")
	_, err = os.Stat(filepath.Join(dir, "p2_full.json"))
	assert.NoError(t, err)
}
