package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/aligator/fat32"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Version is the version of this tool.
const Version = "0.1.0"

// GlobalConfig is the global tool configuration.
type GlobalConfig struct {
	// Image is a default image path used when none is given on the command line.
	Image string `yaml:"image"`
}

var (
	defaultLogFormatter = &log.TextFormatter{}

	// Config is the global tool configuration
	Config = GlobalConfig{}
)

// infoFormatter overrides the default format for Info() log events to
// provide an easier to read output
type infoFormatter struct {
}

func (f *infoFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Level == log.InfoLevel {
		return append([]byte(entry.Message), '\n'), nil
	}
	return defaultLogFormatter.Format(entry)
}

func printVersion() {
	fmt.Printf("%s version %s\n", filepath.Base(os.Args[0]), Version)
	os.Exit(0)
}

func readConfig() {
	cfgPath := filepath.Join(os.Getenv("HOME"), ".fat32", "config.yml")
	cfgBytes, err := ioutil.ReadFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		fmt.Printf("Failed to read %q\n", cfgPath)
		os.Exit(1)
	}
	if err := yaml.Unmarshal(cfgBytes, &Config); err != nil {
		fmt.Printf("Failed to parse %q\n", cfgPath)
		os.Exit(1)
	}
}

func mount(image string) *fat32.Fs {
	file, err := os.Open(image)
	if err != nil {
		log.Fatalf("Cannot open %q: %v", image, err)
	}

	fs, err := fat32.New(fat32.NewFileDevice(file))
	if err != nil {
		log.Fatalf("Cannot mount %q: %v", image, err)
	}

	log.Debugf("Mounted volume %q", fs.Label())

	return fs
}

func ls(fs *fat32.Fs, args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	entries, err := fs.ListDirectory(path)
	if err != nil {
		log.Fatalf("Cannot list %q: %v", path, err)
	}

	if len(entries) == 0 {
		log.Info("(empty)")
		return
	}

	for _, entry := range entries {
		kind := "FILE"
		if entry.IsDirectory() {
			kind = "DIR "
		}
		log.Infof("%s %10d  %s", kind, entry.FileSize, entry.ShortName())
	}
}

func cat(fs *fat32.Fs, args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: cat <file>")
	}

	data, err := fs.ReadFile(args[0])
	if err != nil {
		log.Fatalf("Cannot read %q: %v", args[0], err)
	}

	if _, err := os.Stdout.Write(data); err != nil {
		log.Fatalf("Cannot write to stdout: %v", err)
	}
}

func cd(fs *fat32.Fs, args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: cd <path>")
	}

	if err := fs.ChangeDirectory(args[0]); err != nil {
		log.Fatalf("Cannot change to %q: %v", args[0], err)
	}

	log.Infof("Changed to %v", args[0])
	log.Infof("Cluster: %v", fs.CurrentDirectory())
}

func pwd(fs *fat32.Fs) {
	log.Infof("Cluster of the current directory: %v", fs.CurrentDirectory())
}

func tree(fs *fat32.Fs, args []string) {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}

	err := afero.Walk(fs, path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			log.Infof("%s/", path)
		} else {
			log.Infof("%s (%d bytes)", path, info.Size())
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Cannot walk %q: %v", path, err)
	}
}

func main() {
	flag.Usage = func() {
		fmt.Printf("USAGE: %s [options] [image] [COMMAND] [args]\n\n", filepath.Base(os.Args[0]))
		fmt.Printf("The image may be omitted when it is set in %s\n\n", filepath.Join("~", ".fat32", "config.yml"))
		fmt.Printf("Commands:\n")
		fmt.Printf("  ls [path]    List a directory, by default the current one\n")
		fmt.Printf("  cat <file>   Print the content of a file (alias: more)\n")
		fmt.Printf("  cd <path>    Change the current directory\n")
		fmt.Printf("  pwd          Print the cluster of the current directory\n")
		fmt.Printf("  tree [path]  List a directory recursively\n")
		fmt.Printf("  version      Print version information\n")
		fmt.Printf("  help         Print this message\n")
		fmt.Printf("\n")
		fmt.Printf("The default command is ls.\n")
		fmt.Printf("\n")
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
	}
	flagQuiet := flag.Bool("q", false, "Quiet execution")
	flagVerbose := flag.Bool("v", false, "Verbose execution")

	readConfig()

	flagImage := flag.String("image", Config.Image, "Path to the FAT32 image")

	// Set up logging
	log.SetFormatter(new(infoFormatter))
	log.SetLevel(log.InfoLevel)
	flag.Parse()
	if *flagQuiet && *flagVerbose {
		fmt.Printf("Can't set quiet and verbose flag at the same time\n")
		os.Exit(1)
	}
	if *flagQuiet {
		log.SetLevel(log.ErrorLevel)
	}
	if *flagVerbose {
		// Switch back to the standard formatter
		log.SetFormatter(defaultLogFormatter)
		log.SetLevel(log.DebugLevel)
	}

	args := flag.Args()

	image := *flagImage
	if image == "" {
		if len(args) < 1 {
			fmt.Printf("Please specify an image.\n\n")
			flag.Usage()
			os.Exit(1)
		}
		image = args[0]
		args = args[1:]
	}

	// No command defaults to ls.
	command := "ls"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "ls":
		ls(mount(image), args)
	case "cat", "more":
		cat(mount(image), args)
	case "cd":
		cd(mount(image), args)
	case "pwd":
		pwd(mount(image))
	case "tree":
		tree(mount(image), args)
	case "version":
		printVersion()
	case "help":
		flag.Usage()
	default:
		fmt.Printf("%q is not a valid command.\n\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
