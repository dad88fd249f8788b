package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/usecase"
	"github.com/miu200521358/pose-retarget/pkg/utils"
)

var logLevel string
var skeletonPath string
var dirPath string
var fps float64

func init() {
	flag.StringVar(&logLevel, "logLevel", "INFO", "set log level")
	flag.StringVar(&skeletonPath, "skeletonPath", "", "set skeleton json path")
	flag.StringVar(&dirPath, "dirPath", "", "set directory path")
	flag.Float64Var(&fps, "fps", 30, "set source frame rate")
	flag.Parse()

	switch logLevel {
	case "INFO":
		mlog.SetLevel(mlog.INFO)
	default:
		mlog.SetLevel(mlog.DEBUG)
	}
}

func main() {
	if skeletonPath == "" || dirPath == "" {
		mlog.E("skeletonPath and dirPath must be provided")
		os.Exit(1)
	}

	mlog.I("Unpack json ================")
	allFrames, err := usecase.Unpack(dirPath)
	if err != nil {
		mlog.E("Failed to unpack: %v", err)
		return
	}

	mlog.I("Retarget Motion ================")
	allMotions := usecase.Retarget(allFrames, skeletonPath, fps)

	utils.WriteMotions(allFrames, allMotions, dirPath, "full", "Full")

	mlog.I("Reduce Motion [narrow] ================")
	narrowReduceMotions := usecase.Reduce(allMotions, 0.05, 0.00001, 0)

	utils.WriteMotions(allFrames, narrowReduceMotions, dirPath, "reduce_narrow", "Narrow Reduce")

	mlog.I("Reduce Motion [wide] ================")
	wideReduceMotions := usecase.Reduce(allMotions, 0.07, 0.00005, 2)

	utils.WriteMotions(allFrames, wideReduceMotions, dirPath, "reduce_wide", "Wide Reduce")

	// complete ファイルを出力する
	{
		completePath := filepath.Join(dirPath, "complete")
		mlog.I("Output Complete File %s", completePath)
		f, err := os.Create(completePath)
		if err != nil {
			mlog.E("Failed to create complete file: %v", err)
			return
		}
		defer f.Close()
	}

	mlog.I("Done!")

}
