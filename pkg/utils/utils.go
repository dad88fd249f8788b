package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/model"
	"github.com/miu200521358/pose-retarget/pkg/motion"
)

// GetLandmarkFilePaths ディレクトリ直下のランドマーク JSON を列挙する。
func GetLandmarkFilePaths(dirPath string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != dirPath && info.IsDir() {
			// 直下だけ参照
			return filepath.SkipDir
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), "_landmarks.json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func NewProgressBar(total int) *pb.ProgressBar {
	// プログレスバーのカスタムテンプレートを設定
	template := `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.03f%%" "?"}} {{etime . "%s elapsed"}} {{rtime . "%s remain" "%s total" "???"}}`

	// プログレスバーの作成
	bar := pb.ProgressBarTemplate(template).Start(total)

	return bar
}

// WriteMotions 人物ごとのモーションを並列で書き出す。
func WriteMotions(allFrames []*model.Frames, motions []*motion.BoneMotion, dirPath, fileSuffix, logPrefix string) error {
	errCh := make(chan error, len(motions))
	var wg sync.WaitGroup

	for i, frames := range allFrames {
		if motions[i] == nil {
			// リターゲット失敗分は書き出さない
			mlog.W("Skip %s Motion [%d/%d]: no motion", logPrefix, i+1, len(motions))
			continue
		}

		wg.Add(1)
		go func(i int, frames *model.Frames, m *motion.BoneMotion) {
			defer mlog.I("Output %s Motion [%d/%d] ...", logPrefix, i+1, len(motions))
			defer wg.Done()

			fileName := strings.Replace(filepath.Base(frames.Path), "landmarks.json", fmt.Sprintf("%s.json", fileSuffix), -1)
			m.Path = filepath.Join(dirPath, fileName)

			if err := motion.Write(m); err != nil {
				mlog.E("Failed to write %s motion: %v", logPrefix, err)
				errCh <- err
			}
		}(i, frames, motions[i])
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		return <-errCh
	}

	return nil
}
