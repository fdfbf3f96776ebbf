// Command inodefs manages inodefs disk images from the shell.
package main

import (
	"io/ioutil"
	"log"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/fs"
	"github.com/mit-pdos/go-inodefs/util"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := newApp(config).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(config *Config) *cli.App {
	return &cli.App{
		Name:  "inodefs",
		Usage: "manage an inodefs disk image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "path of the disk image",
				Value:   config.Image,
			},
			&cli.Uint64Flag{
				Name:  "debug",
				Usage: "trace level for file system operations",
				Value: config.Debug,
			},
		},
		Before: func(ctx *cli.Context) error {
			config.Image = ctx.String("image")
			config.Debug = ctx.Uint64("debug")
			util.Debug = config.Debug
			return nil
		},
		Commands: []*cli.Command{{
			Name:  "format",
			Usage: "create (or wipe) the image and write an empty file system",
			Flags: []cli.Flag{&cli.Uint64Flag{
				Name:    "blocks",
				Aliases: []string{"n"},
				Usage:   "size of the image in 4096-byte blocks",
				Value:   config.Blocks,
			}},
			Action: func(ctx *cli.Context) error {
				config.Blocks = ctx.Uint64("blocks")
				if err := config.Validate(); err != nil {
					return err
				}
				d, err := disk.NewFileDisk(config.Image, config.Blocks)
				if err != nil {
					return err
				}
				defer d.Close()
				return fs.MkFileSys(d).Format()
			},
		}, {
			Name:  "debug",
			Usage: "print the superblock and every allocated inode",
			Flags: []cli.Flag{&cli.BoolFlag{
				Name:  "yaml",
				Usage: "print the report as YAML",
			}},
			Action: withMount(config, func(fsys *fs.FileSys, ctx *cli.Context) error {
				r, err := fsys.Debug()
				if err != nil {
					return err
				}
				if ctx.Bool("yaml") {
					out, err := yaml.Marshal(r)
					if err != nil {
						return errors.Wrap(err, "marshaling report")
					}
					_, err = os.Stdout.Write(out)
					return err
				}
				return r.WriteText(os.Stdout)
			}),
		}, {
			Name:  "create",
			Usage: "allocate an empty inode and print its inumber",
			Action: withMount(config, func(fsys *fs.FileSys, ctx *cli.Context) error {
				inum, err := fsys.Create()
				if err != nil {
					return err
				}
				_, err = os.Stdout.WriteString(strconv.FormatUint(uint64(inum), 10) + "\n")
				return err
			}),
		}, {
			Name:      "delete",
			Usage:     "free an inode and its blocks",
			ArgsUsage: "INUM",
			Action: withMount(config, func(fsys *fs.FileSys, ctx *cli.Context) error {
				inum, err := inumArg(ctx)
				if err != nil {
					return err
				}
				return fsys.Delete(inum)
			}),
		}, {
			Name:      "import",
			Usage:     "copy a local file into an inode",
			ArgsUsage: "INUM FILE",
			Flags: []cli.Flag{&cli.Uint64Flag{
				Name:  "offset",
				Usage: "byte offset in the inode to write at",
			}},
			Action: withMount(config, func(fsys *fs.FileSys, ctx *cli.Context) error {
				inum, err := inumArg(ctx)
				if err != nil {
					return err
				}
				data, err := ioutil.ReadFile(ctx.Args().Get(1))
				if err != nil {
					return errors.Wrap(err, "reading input file")
				}
				n, err := fsys.Write(inum, data, ctx.Uint64("offset"))
				if err != nil {
					return err
				}
				if n < uint64(len(data)) {
					return errors.Wrapf(common.ErrNoSpace, "wrote %d of %d bytes", n, len(data))
				}
				return nil
			}),
		}, {
			Name:      "export",
			Usage:     "copy the contents of an inode to stdout",
			ArgsUsage: "INUM",
			Action: withMount(config, func(fsys *fs.FileSys, ctx *cli.Context) error {
				inum, err := inumArg(ctx)
				if err != nil {
					return err
				}
				sz, err := fsys.GetSize(inum)
				if err != nil {
					return err
				}
				buf := make([]byte, sz)
				n, err := fsys.Read(inum, buf, 0)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(buf[:n])
				return err
			}),
		}},
	}
}

// withMount opens the configured image, mounts it for the action, and
// unmounts and closes it afterwards.
func withMount(
	config *Config,
	f func(*fs.FileSys, *cli.Context) error,
) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		d, err := disk.OpenFileDisk(config.Image)
		if err != nil {
			return err
		}
		defer d.Close()
		fsys := fs.MkFileSys(d)
		if err := fsys.Mount(); err != nil {
			return errors.Wrapf(err, "mounting %s", config.Image)
		}
		if err := f(fsys, ctx); err != nil {
			fsys.Unmount()
			return err
		}
		return fsys.Unmount()
	}
}

func inumArg(ctx *cli.Context) (common.Inum, error) {
	if ctx.NArg() < 1 {
		return common.NULLINUM, errors.New("missing INUM argument")
	}
	n, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
	if err != nil {
		return common.NULLINUM, errors.Wrapf(err, "parsing inumber %q", ctx.Args().First())
	}
	return common.Inum(n), nil
}
