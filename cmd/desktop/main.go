// Command desktop runs a hot-reloaded Update script for every ball in a
// window. Space makes grounded balls jump, N spawns a ball and R resets.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math/rand/v2"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"scriptvm/pkg/config"
	"scriptvm/pkg/hostlib"
	"scriptvm/pkg/hotreload"
	"scriptvm/pkg/logger"
	"scriptvm/pkg/render"
	"scriptvm/pkg/scene"
	"scriptvm/pkg/script"
)

// spriteSource draws the ball sprite. It runs once at startup.
const spriteSource = `
float sdf(float x, float y) {
	return sqrt(x * x + y * y) - 0.9;
}`

const spriteSize = 16

// watchedKeys maps ebiten keys to the codes scripts pass to key_down.
var watchedKeys = map[ebiten.Key]int32{
	ebiten.KeySpace:      32,
	ebiten.KeyArrowLeft:  37,
	ebiten.KeyArrowUp:    38,
	ebiten.KeyArrowRight: 39,
	ebiten.KeyArrowDown:  40,
}

type Game struct {
	world    *scene.World
	reloader *hotreload.Reloader
	sprite   *ebiten.Image
	log      *logger.Logger
	lastErr  string
	width    int
	height   int
}

func (g *Game) spawn() {
	g.world.Spawn(scene.Body{
		Pos: hostlib.Vec2{X: rand.Float32() * float32(g.width), Y: rand.Float32() * float32(g.height) / 2},
		Vel: hostlib.Vec2{X: rand.Float32()*200 - 100},
	})
}

func (g *Game) Update() error {
	for key, code := range watchedKeys {
		g.world.SetKey(code, ebiten.IsKeyPressed(key))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.spawn()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.world.Reset()
		g.spawn()
	}

	dt := float32(1) / float32(ebiten.TPS())
	if err := g.world.Step(g.reloader, dt); err != nil {
		// Logged once per distinct failure; a reload may fix it.
		if msg := err.Error(); msg != g.lastErr {
			g.log.Error("%s", msg)
			g.lastErr = msg
		}
	} else {
		g.lastErr = ""
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x1D, 0x2B, 0x53, 0xFF})
	for _, b := range g.world.Bodies() {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(b.Pos.X)-spriteSize/2, float64(b.Pos.Y)-spriteSize)
		screen.DrawImage(g.sprite, op)
	}

	status := fmt.Sprintf("balls: %d  generation: %.8s  reloads: %d",
		len(g.world.Bodies()), g.reloader.Current(), g.reloader.Reloads())
	if g.lastErr != "" {
		status += "\n" + g.lastErr
	}
	ebitenutil.DebugPrintAt(screen, status, 4, 4)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

// newSprite rasterizes spriteSource into a ball image.
func newSprite(cfg *config.Config) (*ebiten.Image, error) {
	p := script.NewProgram("", cfg.StackSize, "sdf")
	if err := hostlib.Register(p); err != nil {
		return nil, err
	}
	if err := p.CompileSource(spriteSource); err != nil {
		return nil, err
	}
	opts := render.DefaultOptions()
	opts.Width, opts.Height = spriteSize, spriteSize
	opts.Background = color.RGBA{}
	img, err := render.Rasterize(p, opts)
	if err != nil {
		return nil, err
	}
	return ebiten.NewImageFromImage(img), nil
}

func main() {
	configPath := flag.String("config", config.FileName, "host config file")
	scriptPath := flag.String("script", "", "script to run (overrides the config)")
	balls := flag.Int("balls", 5, "number of balls to start with")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *scriptPath != "" {
		cfg.Script = *scriptPath
	}
	lg := logger.New(os.Stdout, cfg.Level(), "desktop")

	world := scene.NewWorld(float32(cfg.Window.Width), float32(cfg.Window.Height))
	prog := script.NewProgram(cfg.Script, cfg.StackSize, cfg.Entry)
	if err := hostlib.Register(prog); err != nil {
		log.Fatalf("Failed to bind host library: %v", err)
	}
	if err := world.Bind(prog); err != nil {
		log.Fatalf("Failed to bind scene: %v", err)
	}

	reloader := hotreload.New(prog, lg)
	if err := reloader.Init(); err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reloader.Run(ctx, cfg.PollInterval)

	sprite, err := newSprite(cfg)
	if err != nil {
		log.Fatalf("Failed to render sprite: %v", err)
	}

	game := &Game{
		world:    world,
		reloader: reloader,
		sprite:   sprite,
		log:      lg,
		width:    cfg.Window.Width,
		height:   cfg.Window.Height,
	}
	for i := 0; i < *balls; i++ {
		game.spawn()
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
